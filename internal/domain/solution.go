package domain

import "time"

type VoteKind string

const (
	Upvote   VoteKind = "upvote"
	Downvote VoteKind = "downvote"
)

func (k VoteKind) Valid() bool { return k == Upvote || k == Downvote }

type Solution struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PaperID   string    `gorm:"size:36;not null;index" json:"paperId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  string    `gorm:"size:36;not null;index" json:"authorId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Upvotes   []string `gorm:"-" json:"upvotes"`
	Downvotes []string `gorm:"-" json:"downvotes"`
}

func (Solution) TableName() string { return "solutions" }

// SolutionVote 每个 (solution, user) 最多一行，主键保证用户不会同时出现在两个集合
type SolutionVote struct {
	SolutionID string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"primaryKey;size:36"`
	Kind       VoteKind  `gorm:"size:8;not null"`
	CreatedAt  time.Time `gorm:"index"`
}

func (SolutionVote) TableName() string { return "solution_votes" }

type VoteSets struct {
	Upvotes   []string `json:"upvotes"`
	Downvotes []string `json:"downvotes"`
}

// PaperSummary 解答列表里附带的试卷摘要
type PaperSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subject  string `json:"subject"`
	Semester string `json:"semester"`
	Year     string `json:"year"`
}

type SolutionView struct {
	Solution
	Author *PublicUser   `json:"author,omitempty"`
	Paper  *PaperSummary `json:"paper"`
}
