package domain

import (
	"strings"
	"time"
)

type Paper struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Subject     string    `gorm:"size:128;not null;index" json:"subject"`
	Semester    string    `gorm:"size:64;not null;index" json:"semester"`
	Year        string    `gorm:"size:16;not null;index" json:"year"`
	SubjectCode string    `gorm:"size:64;not null;index" json:"subjectCode"`
	CollegeName string    `gorm:"size:255;not null;index" json:"collegeName"`
	Description string    `gorm:"type:text" json:"description"`
	FileURL     string    `gorm:"size:512;not null" json:"fileUrl"`
	FileName    string    `gorm:"size:255;not null" json:"fileName"`
	AuthorID    string    `gorm:"size:36;not null;index" json:"authorId"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

func (Paper) TableName() string { return "papers" }

// PaperView 列表/详情输出：附带作者公开信息与解答数
type PaperView struct {
	Paper
	Author        *PublicUser `json:"author"`
	SolutionCount int64       `json:"solutionCount"`
}

// RelatedPaper 相关试卷的精简投影
type RelatedPaper struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Semester    string `json:"semester"`
	Year        string `json:"year"`
	CollegeName string `json:"collegeName"`
}

type PaperDetail struct {
	Paper         PaperView      `json:"paper"`
	SolutionCount int64          `json:"solutionCount"`
	RelatedPapers []RelatedPaper `json:"relatedPapers"`
}

// PaperMetadata 上传时随文件提交的字段
type PaperMetadata struct {
	Title       string `validate:"required,max=255"`
	Subject     string `validate:"required,max=128"`
	Semester    string `validate:"required,max=64"`
	Year        string `validate:"required,max=16"`
	SubjectCode string `validate:"required,max=64"`
	CollegeName string `validate:"required,max=255"`
	Description string `validate:"max=5000"`
}

func (m *PaperMetadata) Trim() {
	m.Title = strings.TrimSpace(m.Title)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Semester = strings.TrimSpace(m.Semester)
	m.Year = strings.TrimSpace(m.Year)
	m.SubjectCode = strings.TrimSpace(m.SubjectCode)
	m.CollegeName = strings.TrimSpace(m.CollegeName)
	m.Description = strings.TrimSpace(m.Description)
}

// PaperFilter 每个字段独立可选；nil 或空串视为不限制，多个字段之间为 AND
type PaperFilter struct {
	Subject     *string `form:"subject"`
	Semester    *string `form:"semester"`
	Year        *string `form:"year"`
	SubjectCode *string `form:"subjectCode"`
	CollegeName *string `form:"collegeName"`
	Search      *string `form:"search"`
}

// Opt 返回去空格后的值及是否生效
func Opt(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	s := strings.TrimSpace(*p)
	return s, s != ""
}

type FilterOptions struct {
	Subjects     []string `json:"subjects"`
	Semesters    []string `json:"semesters"`
	Years        []string `json:"years"`
	SubjectCodes []string `json:"subjectCodes"`
	CollegeNames []string `json:"collegeNames"`
}
