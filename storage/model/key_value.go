package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scopes and keys of the KeyValue table
const (
	KeyValueScopeIssuerRegistry = "issuer_registry"

	KeyValueKeyOwner    = "owner"
	KeyValueKeyDeployed = "deployed"
)

// KeyValue stores arbitrary key-value data.
//
// Values are serialized using GORM's json serializer, which leverages the
// database JSON type when available and falls back to TEXT otherwise. The
// `Scope` field namespaces keys of different features.
type KeyValue struct {
	CreatedAt int            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Scope allows grouping keys by namespace; empty string is global scope.
	Scope string `gorm:"primaryKey" json:"scope"`

	// Key is the identifier within a scope.
	Key string `gorm:"primaryKey" json:"key"`

	Value datatypes.JSON `json:"value"`
}
