package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaperMetadata_Trim(t *testing.T) {
	m := PaperMetadata{
		Title: " Midterm ", Subject: "CS\t", Semester: " Fall", Year: "2024 ",
		SubjectCode: " CS101 ", CollegeName: "\nMIT ", Description: "  past exam \n",
	}
	m.Trim()
	assert.Equal(t, PaperMetadata{
		Title: "Midterm", Subject: "CS", Semester: "Fall", Year: "2024",
		SubjectCode: "CS101", CollegeName: "MIT", Description: "past exam",
	}, m)
}

func TestOpt(t *testing.T) {
	_, ok := Opt(nil)
	assert.False(t, ok)
	blank := "  "
	_, ok = Opt(&blank)
	assert.False(t, ok)
	v := " CS "
	s, ok := Opt(&v)
	assert.True(t, ok)
	assert.Equal(t, "CS", s)
}
