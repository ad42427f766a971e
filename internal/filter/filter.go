// Package filter 将白名单内的查询参数转换为参数化的 WHERE 片段。
// 只有白名单中的列名、操作符和 $n 占位符会出现在生成的 SQL 中，值全部作为参数绑定。
package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
)

// Op 比较操作符
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Kind 参数值类型，决定解析方式
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindText
	KindDate
	KindTaskStatus
	KindProjectStatus
)

const dateLayout = "2006-01-02"

// Field 白名单条目
type Field struct {
	Column string
	Op     Op
	Kind   Kind
}

// Whitelist 查询参数名 -> 列
type Whitelist map[string]Field

// Clause 生成的过滤条件，SQL 为空表示不过滤
type Clause struct {
	SQL  string
	Args []any
	Keys []string
}

// Empty 没有识别到任何过滤条件
func (c Clause) Empty() bool {
	return c.SQL == ""
}

// Has 是否包含某个查询参数
func (c Clause) Has(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Build 按参数名排序生成 "col op $n AND ..."，占位符从 firstPlaceholder 开始编号。
// 白名单外的参数和空值被忽略，值无法解析时返回 Validation 错误。
func Build(params map[string]string, allowed Whitelist, firstPlaceholder int) (Clause, error) {
	if firstPlaceholder < 1 {
		firstPlaceholder = 1
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if _, ok := allowed[k]; ok && strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var (
		parts []string
		args  []any
	)
	for _, k := range keys {
		field := allowed[k]
		switch field.Op {
		case OpEq, OpGte, OpLte:
		default:
			return Clause{}, fmt.Errorf("filter %q: unsupported operator %q", k, field.Op)
		}

		v, err := parse(field.Kind, strings.TrimSpace(params[k]))
		if err != nil {
			return Clause{}, apperr.InvalidValue(k, err.Error())
		}

		parts = append(parts, fmt.Sprintf("%s %s $%d", field.Column, field.Op, firstPlaceholder+len(args)))
		args = append(args, v)
	}

	return Clause{
		SQL:  strings.Join(parts, " AND "),
		Args: args,
		Keys: keys,
	}, nil
}

func parse(kind Kind, raw string) (any, error) {
	switch kind {
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected integer")
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number")
		}
		return f, nil
	case KindDate:
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("expected date YYYY-MM-DD")
		}
		return d, nil
	case KindTaskStatus:
		s := model.TaskStatus(raw)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown task status")
		}
		return string(s), nil
	case KindProjectStatus:
		s := model.ProjectStatus(raw)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown project status")
		}
		return string(s), nil
	default:
		return raw, nil
	}
}

// FromQuery 取每个参数的第一个值
func FromQuery(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
