package profiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Family 类型族，决定输出哪些专有统计
type Family string

const (
	FamilyInteger  Family = "numeric_integer"
	FamilyReal     Family = "numeric_real"
	FamilyBoolean  Family = "numeric_boolean"
	FamilyTemporal Family = "temporal"
	FamilyTextual  Family = "textual"
	FamilyOpaque   Family = "opaque"
)

// Numeric 是否属于数值族
func (f Family) Numeric() bool {
	return f == FamilyInteger || f == FamilyReal || f == FamilyBoolean
}

// InferFamily 根据声明类型推断类型族
// 大小写不敏感的子串匹配，按优先级判定：
// INT > REAL/FLOA/DOUB/DECIMAL/NUMERIC > BOOL > DATE/TIME > CHAR/TEXT/CLOB/JSON > 其余
func InferFamily(declaredType string) Family {
	t := strings.ToUpper(declaredType)

	switch {
	case strings.Contains(t, "INT"):
		return FamilyInteger
	case containsAny(t, "REAL", "FLOA", "DOUB", "DECIMAL", "NUMERIC"):
		return FamilyReal
	case strings.Contains(t, "BOOL"):
		return FamilyBoolean
	case containsAny(t, "DATE", "TIME"):
		return FamilyTemporal
	case containsAny(t, "CHAR", "TEXT", "CLOB", "JSON"):
		return FamilyTextual
	default:
		return FamilyOpaque
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// asFloat 把原始值解析成 float64
// 布尔按 {0,1} 处理，DECIMAL 等以字符串返回的值也在这里解析。
func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		switch strings.ToLower(s) {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asString 把原始值转成字符串形式
func asString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
