package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
)

// insertBatchSize 单条 INSERT 的行数上限，避免超出 PostgreSQL 参数个数限制
const insertBatchSize = 500

// SectionRepository Section 目录数据访问接口
type SectionRepository interface {
	// ReplaceByTerm 在事务中全量替换一个学期的目录：先删除旧数据，再按输出顺序批量插入
	ReplaceByTerm(ctx context.Context, term model.TermIdentifier, sections []model.Section) error
	// List 按链接输出顺序返回目录；term 为 nil 时返回全部学期
	List(ctx context.Context, term *model.TermIdentifier) ([]model.Section, error)
	CountByTerm(ctx context.Context, term model.TermIdentifier) (int64, error)
}

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) ReplaceByTerm(ctx context.Context, term model.TermIdentifier, sections []model.Section) error {
	records := make([]model.SectionRecord, 0, len(sections))
	for i, s := range sections {
		if s.Identifier.TermIdentifier() != term {
			return fmt.Errorf("Section %s 不属于学期 %s", s.Identifier, term)
		}
		records = append(records, model.NewSectionRecord(s, i))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("term_key = ?", term.String()).
			Delete(&model.SectionRecord{}).Error; err != nil {
			return err
		}
		if len(records) > 0 {
			if err := tx.CreateInBatches(&records, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sectionRepo) List(ctx context.Context, term *model.TermIdentifier) ([]model.Section, error) {
	var records []model.SectionRecord
	q := r.db.WithContext(ctx).Model(&model.SectionRecord{})
	if term != nil {
		q = q.Where("term_key = ?", term.String())
	}
	if err := q.Order("term_key ASC, position ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	sections := make([]model.Section, 0, len(records))
	for _, rec := range records {
		s, err := rec.ToSection()
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, nil
}

func (r *sectionRepo) CountByTerm(ctx context.Context, term model.TermIdentifier) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SectionRecord{}).
		Where("term_key = ?", term.String()).
		Count(&count).Error
	return count, err
}
