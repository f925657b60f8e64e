package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 是可从 JSON 读取的时长
//
// 接受 "3m"、"1s"、"500ms" 等字符串，也接受纳秒整数。
// 输出时总是写成字符串。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("config: duration must be a string like \"3m\" or integer nanoseconds")
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std 返回 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }
