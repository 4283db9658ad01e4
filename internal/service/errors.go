package service

import (
	"errors"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// notFoundOr 把 gorm 的记录不存在转换为业务 NotFound，其它错误原样返回
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NotFoundError(format, args...)
	}
	return err
}

// conflictOr 唯一索引冲突转换为 Conflict
func conflictOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ConflictError(format, args...)
	}
	return err
}
