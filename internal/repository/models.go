package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kursadbilgin/message-courier/internal/domain"
)

// OptionsMap persists an opaque string map as a jsonb column.
type OptionsMap map[string]string

func (o OptionsMap) Value() (driver.Value, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o)
}

func (o *OptionsMap) Scan(value any) error {
	if value == nil {
		*o = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for options map", value)
	}

	return json.Unmarshal(raw, o)
}

// MessageModel is the persistence model for the messages table.
type MessageModel struct {
	ID             int64            `gorm:"primaryKey;autoIncrement"`
	CorrelationID  string           `gorm:"type:text;not null;uniqueIndex:idx_messages_correlation_id"`
	Provider       string           `gorm:"type:text;not null"`
	CredentialsID  string           `gorm:"type:uuid;not null"`
	Medium         domain.Medium    `gorm:"type:varchar(10);not null"`
	Direction      domain.Direction `gorm:"type:varchar(10);not null"`
	Body           string           `gorm:"type:text;not null"`
	SendOptions    OptionsMap       `gorm:"type:jsonb;not null"`
	SentAt         *time.Time       `gorm:"type:timestamptz"`
	Error          *string          `gorm:"type:text"`
	Retries        int              `gorm:"not null;default:0"`
	CustomerKey    *string          `gorm:"type:text"`
	ConversationID *string          `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// CredentialModel is the persistence model for the credentials table.
// The (provider, key) pair carries a composite unique index.
type CredentialModel struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	Provider  string     `gorm:"type:text;not null;uniqueIndex:idx_credentials_provider_key"`
	Key       string     `gorm:"column:key;type:text;not null;uniqueIndex:idx_credentials_provider_key"`
	Options   OptionsMap `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CredentialModel) TableName() string {
	return "credentials"
}

// TemplateModel is the persistence model for the templates table.
type TemplateModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"type:text;not null"`
	Content   string `gorm:"type:text;not null"`
	Engine    string `gorm:"type:text;not null;default:hbs"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TemplateModel) TableName() string {
	return "templates"
}

func messageModelFromDomain(m *domain.Message) *MessageModel {
	if m == nil {
		return nil
	}

	return &MessageModel{
		ID:             m.ID,
		CorrelationID:  m.CorrelationID,
		Provider:       m.Provider,
		CredentialsID:  m.CredentialsID,
		Medium:         m.Medium,
		Direction:      m.Direction,
		Body:           m.Body,
		SendOptions:    OptionsMap(m.SendOptions),
		SentAt:         m.SentAt,
		Error:          m.Error,
		Retries:        m.Retries,
		CustomerKey:    m.CustomerKey,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:             m.ID,
		CorrelationID:  m.CorrelationID,
		Provider:       m.Provider,
		CredentialsID:  m.CredentialsID,
		Medium:         m.Medium,
		Direction:      m.Direction,
		Body:           m.Body,
		SendOptions:    map[string]string(m.SendOptions),
		SentAt:         m.SentAt,
		Error:          m.Error,
		Retries:        m.Retries,
		CustomerKey:    m.CustomerKey,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func credentialModelFromDomain(c *domain.Credential) *CredentialModel {
	if c == nil {
		return nil
	}

	return &CredentialModel{
		ID:        c.ID,
		Provider:  c.Provider,
		Key:       c.Key,
		Options:   OptionsMap(c.Options),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func credentialModelToDomain(m *CredentialModel) *domain.Credential {
	if m == nil {
		return nil
	}

	return &domain.Credential{
		ID:        m.ID,
		Provider:  m.Provider,
		Key:       m.Key,
		Options:   map[string]string(m.Options),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func templateModelFromDomain(t *domain.Template) *TemplateModel {
	if t == nil {
		return nil
	}

	return &TemplateModel{
		ID:        t.ID,
		Name:      t.Name,
		Content:   t.Content,
		Engine:    t.Engine,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}

	return &domain.Template{
		ID:        m.ID,
		Name:      m.Name,
		Content:   m.Content,
		Engine:    m.Engine,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
