// Package domain defines the persistence models for clients, users, settings,
// attribute templates, client attributes, and communications. These types are
// mapped with GORM and form the shared data layer of the agent backend.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// StatusActive is the status value marking a row as usable. The legacy data
// this schema inherits stores it in Spanish, so the constant keeps that value.
const StatusActive = "Activo"

// Client represents a tenant organization. Every user, attribute, and session
// in the system is scoped to exactly one client.
//
// Fields:
//   - ID: auto-increment primary key.
//   - ClientCode: short human-facing code used by the bridge endpoints
//     (globally unique).
//   - Name: display name (globally unique).
//   - Status: "Activo" or inactive; inactive clients reject new sessions.
//   - ProductAPI: optional URL of an external product catalog.
//   - ProductList: optional comma-separated fallback catalog.
type Client struct {
	ID          uint      `json:"id"          gorm:"primaryKey"`
	ClientCode  string    `json:"client_code" gorm:"type:varchar(64);not null;uniqueIndex"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Status      string    `json:"status"      gorm:"type:varchar(32);not null;default:'Activo'"`
	CreatedAt   time.Time `json:"created_at"`
	ProductAPI  string    `json:"product_api,omitempty"  gorm:"type:varchar(512)"`
	ProductList string    `json:"product_list,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// User represents one end user scoped to a client. Users are created lazily
// on first contact and carry an opaque session token that correlates their
// questions and communications across reconnects.
//
// Username uniqueness is enforced per client, not globally: the same username
// may exist under two different tenants.
type User struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	Username  string    `json:"username"  gorm:"type:varchar(255);not null;uniqueIndex:ux_users_client_username,priority:2"`
	ClientID  uint      `json:"client_id" gorm:"not null;index;uniqueIndex:ux_users_client_username,priority:1"`
	SessionID *string   `json:"session_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	Status    string    `json:"status"    gorm:"type:varchar(32);not null;default:'Activo'"`
	CreatedAt time.Time `json:"created_at"`

	Client Client `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Setting is a process-wide key/value configuration row. The webhook
// dispatcher reads the external agent URL and the public callback host from
// here rather than from the environment, so operators can change them at
// runtime.
type Setting struct {
	ID          uint      `json:"id"          gorm:"primaryKey"`
	Key         string    `json:"key"         gorm:"type:varchar(64);not null;uniqueIndex"`
	Description string    `json:"description,omitempty" gorm:"type:varchar(255)"`
	Value       string    `json:"value"       gorm:"type:text;not null"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }

// Template defines the schema of one configurable per-client attribute:
// a unique key, a human description, and a declared data type. Concrete
// values live in Attribute rows.
type Template struct {
	ID          uint   `json:"id"          gorm:"primaryKey"`
	Key         string `json:"key"         gorm:"type:varchar(64);not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:varchar(255)"`
	DataType    string `json:"data_type"   gorm:"type:varchar(32);not null;default:'text'"`
	Status      string `json:"status"      gorm:"type:varchar(32);not null;default:'Activo'"`
}

// TableName returns the database table name for Template.
func (Template) TableName() string { return "templates" }

// Attribute is a client's concrete value for a template. At most one
// attribute may exist per (client, template) pair.
type Attribute struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	ClientID   uint      `json:"client_id"   gorm:"not null;index;uniqueIndex:ux_attributes_client_template,priority:1"`
	TemplateID uint      `json:"template_id" gorm:"not null;index;uniqueIndex:ux_attributes_client_template,priority:2"`
	Value      string    `json:"value"       gorm:"type:text;not null"`
	UpdatedAt  time.Time `json:"updated_at"`

	Client   Client   `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Template Template `json:"-" gorm:"foreignKey:TemplateID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Attribute.
func (Attribute) TableName() string { return "attributes" }

// Communication is one immutable message exchanged in a session. Rows are
// append-only and ordered by id; "latest for a session" means highest id.
//
// SessionID references User.SessionID by value, deliberately without a
// foreign key, so rotating a user's session never orphans history writes.
type Communication struct {
	ID        uint            `json:"id"         gorm:"primaryKey"`
	SessionID string          `json:"session_id" gorm:"type:varchar(64);not null;index"`
	Message   json.RawMessage `json:"message"    gorm:"type:jsonb;not null"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName returns the database table name for Communication.
func (Communication) TableName() string { return "communication" }

// BeforeCreate backfills CreatedAt when the inserting caller omitted it.
// No communication row may persist with a null created_at; the legacy schema
// enforced this with a database trigger, here it lives in the data layer.
func (c *Communication) BeforeCreate(*gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}
