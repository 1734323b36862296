package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// UintArray 以 JSON 数组形式存储的 ID 集合
type UintArray []uint

// Value 实现 driver.Valuer 接口
func (a UintArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]uint(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (a *UintArray) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = UintArray{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported uint array value: %T", value)
	}
	if len(raw) == 0 {
		*a = UintArray{}
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*a = ids
	return nil
}

// Set 转换为集合，便于做交集判断
func (a UintArray) Set() map[uint]struct{} {
	set := make(map[uint]struct{}, len(a))
	for _, id := range a {
		if id == 0 {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Normalize 去重、去零并排序
func (a UintArray) Normalize() UintArray {
	set := a.Set()
	out := make(UintArray, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
