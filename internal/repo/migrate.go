package repo

import (
	"gorm.io/gorm"

	"papervault/internal/domain"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// 标题/科目/描述拼成的全文检索表达式；索引与查询必须完全一致
const paperSearchDoc = "to_tsvector('simple', coalesce(title,'') || ' ' || coalesce(subject,'') || ' ' || coalesce(description,''))"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.Paper{}, &domain.Solution{}, &domain.SolutionVote{}); err != nil {
		return err
	}
	if db.Dialector.Name() == dialectPostgres {
		return db.Exec("CREATE INDEX IF NOT EXISTS idx_papers_search ON papers USING GIN (" + paperSearchDoc + ")").Error
	}
	return nil
}
