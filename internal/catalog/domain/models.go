package domain

import (
	"github.com/bwmarrin/snowflake"
)

type Service struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id"`
	Name  string
}

type Specialization struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id"`
	Name  string
}

type LanguagePair struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrgID          snowflake.ID `gorm:"column:org_id"`
	SourceLanguage string       `gorm:"column:source_language"`
	TargetLanguage string       `gorm:"column:target_language"`
}

// Label renders the pair the way price lists display it.
func (p LanguagePair) Label() string {
	return PairLabel(p.SourceLanguage, p.TargetLanguage)
}

func PairLabel(source, target string) string {
	if source == "" && target == "" {
		return ""
	}
	return source + " > " + target
}

// Currency and Unit are global reference rows shared by every tenant.
type Currency struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	Code   string
	Name   string
	Symbol string
}

type Unit struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Name string
}

type Manager struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id"`
	Name  string
	Email string
}
