package ipc

import "github.com/cespare/xxhash/v2"

// DeriveKey 由名称和原语类型后缀计算 IPC key。
//
// 同一 (name, suffix) 在任何进程中得到相同的 key。
// 0 是 IPC_PRIVATE，会被映射为 1。
func DeriveKey(name, suffix string) int32 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(suffix)
	sum := d.Sum64()

	key := int32(uint32(sum) ^ uint32(sum>>32))
	if key == 0 {
		key = 1
	}
	return key
}
