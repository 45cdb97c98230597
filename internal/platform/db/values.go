package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// FormatValue renders a query result value as Postgres would print it in text
// format. NULL becomes the empty string; midnight timestamps render as plain
// dates, which is what DATE columns decode to.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if h, m, s := val.Clock(); h == 0 && m == 0 && s == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil || dv == nil {
			return ""
		}
		return fmt.Sprintf("%v", dv)
	default:
		return fmt.Sprintf("%v", val)
	}
}
