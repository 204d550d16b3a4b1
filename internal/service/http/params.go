package httpsvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// formValues читает тело как JSON-объект или как форму (urlencoded/multipart).
// Значения JSON остаются в исходном виде: число, строка, bool.
func formValues(c *gin.Context) (map[string]any, error) {
	values := map[string]any{}

	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		raw, err := c.GetRawData()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return values, nil
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, err
		}
		return values, nil
	}

	if err := c.Request.ParseMultipartForm(1 << 20); err != nil {
		if err := c.Request.ParseForm(); err != nil {
			return nil, err
		}
	}
	for key, vals := range c.Request.PostForm {
		if len(vals) > 0 {
			values[key] = vals[0]
		}
	}
	return values, nil
}

// stringValue приводит значение формы к строке; отсутствующее даёт "".
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// parseQuantity разбирает количество снисходительно: ведущие цифры числа или
// строки ("3", 3, "3 Stück", 2.7 → 2); всё остальное и 0 дают 1, минимум 1.
func parseQuantity(v any) int {
	s := strings.TrimSpace(stringValue(v))

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// переполнение: знак решает
		if strings.HasPrefix(s, "-") {
			return 1
		}
		return int(^uint(0) >> 1)
	}
	if n < 1 {
		return 1
	}
	return n
}
