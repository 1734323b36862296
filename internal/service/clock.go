package service

import "time"

// Clock 时间来源，测试时可替换
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func (c Clock) now() time.Time {
	if c == nil {
		return systemClock()
	}
	return c().UTC()
}
