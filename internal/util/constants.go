package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeImage = "image/"
)

// 题目图片上传上限
const MaxQuestionImageSize = 5 << 20

var AllowedImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
