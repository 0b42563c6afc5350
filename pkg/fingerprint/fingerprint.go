// Package fingerprint 生成文章去重与缓存寻址用的指纹。
// 指纹只追求稳定与低碰撞，不是安全原语。
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
)

// CacheKeyLen 缓存指纹在文件名中占用的十六进制位数
const CacheKeyLen = 10

// DedupKey 由（标题、机构、发布日期）生成去重指纹。
// 同一逻辑文章无论链接如何变化，三元组相同则指纹相同。
func DedupKey(title, institution, date string) string {
	sum := md5.Sum([]byte(title + "_" + institution + "_" + date))
	return hex.EncodeToString(sum[:])
}

// CacheKey 由链接生成缓存寻址指纹，截短后嵌入文件名
func CacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:CacheKeyLen]
}
