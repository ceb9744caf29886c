package repository

import "gorm.io/gorm"

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

func likePattern(search string) string {
	return "%" + search + "%"
}
