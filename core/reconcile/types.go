package reconcile

import (
	"context"
	"strings"
	"time"
)

// Field names a synchronized attribute using the remote store's wire name.
type Field string

const (
	// FieldName is the identifying name. It is sent on create but never diffed.
	FieldName Field = "name"
	// FieldDisplayName is the human readable account name.
	FieldDisplayName Field = "account_name"
	// FieldParent is the parent reference, by identifying name.
	FieldParent Field = "parent_account"
	// FieldType is the account type (e.g. "Bank", "Receivable").
	FieldType Field = "account_type"
	// FieldRootType is the root classification (Asset, Liability, ...).
	FieldRootType Field = "root_type"
	// FieldReportType is the report classification (Balance Sheet, Profit and Loss).
	FieldReportType Field = "report_type"
	// FieldIsGroup is the group/leaf flag.
	FieldIsGroup Field = "is_group"
	// FieldCompany is the owning scope.
	FieldCompany Field = "company"
)

// CompareFields is the fixed field set the Differ inspects, in canonical order.
var CompareFields = []Field{
	FieldDisplayName,
	FieldParent,
	FieldType,
	FieldRootType,
	FieldReportType,
	FieldIsGroup,
	FieldCompany,
}

// Record is one account as seen by the reconciler.
// It deliberately has no balance, currency or audit fields.
type Record struct {
	// Name is the unique identifying name within its store.
	Name string `json:"name"`

	// DisplayName is the optional display name (account_name).
	DisplayName string `json:"account_name,omitempty"`

	// Parent is the parent reference by identifying name. Empty for roots.
	Parent string `json:"parent_account,omitempty"`

	// IsGroup marks records that may hold children.
	IsGroup bool `json:"is_group"`

	// Type is the account type.
	Type string `json:"account_type,omitempty"`

	// RootType is the root classification.
	RootType string `json:"root_type,omitempty"`

	// ReportType is the report classification.
	ReportType string `json:"report_type,omitempty"`

	// Company is the owning scope.
	Company string `json:"company,omitempty"`
}

// Key returns the record's NormalizedKey. The identifying name is preferred,
// falling back to the display name for records that carry no name.
func (r Record) Key() string {
	if strings.TrimSpace(r.Name) != "" {
		return Normalize(r.Name)
	}
	return Normalize(r.DisplayName)
}

// Value returns the string form of a field, with absent values as "".
func (r Record) Value(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldDisplayName:
		return r.DisplayName
	case FieldParent:
		return r.Parent
	case FieldType:
		return r.Type
	case FieldRootType:
		return r.RootType
	case FieldReportType:
		return r.ReportType
	case FieldIsGroup:
		if r.IsGroup {
			return "1"
		}
		return "0"
	case FieldCompany:
		return r.Company
	default:
		return ""
	}
}

// Payload is a create or update body keyed by wire field name.
type Payload map[Field]any

// payloadValue converts a field of r to its wire representation.
func payloadValue(r Record, f Field) any {
	switch f {
	case FieldIsGroup:
		if r.IsGroup {
			return 1
		}
		return 0
	case FieldParent:
		if strings.TrimSpace(r.Parent) == "" {
			return nil
		}
		return r.Parent
	default:
		return r.Value(f)
	}
}

// CreatePayload builds the full creation body for r from the allow-list.
func CreatePayload(r Record) Payload {
	p := Payload{FieldName: r.Name}
	for _, f := range CompareFields {
		p[f] = payloadValue(r, f)
	}
	return p
}

// UpdatePayload builds a partial body containing only the given fields of r.
func UpdatePayload(r Record, fields []Field) Payload {
	p := make(Payload, len(fields))
	for _, f := range fields {
		p[f] = payloadValue(r, f)
	}
	return p
}

// Filter scopes an inventory listing.
type Filter struct {
	// Company restricts the listing to one owning scope. Empty means all.
	Company string
}

// Store is the remote store capability the reconciler drives.
// Implementations bind base address, credentials and collection kind.
type Store interface {
	// List returns the full inventory, optionally scoped by filter.
	List(ctx context.Context, filter Filter) ([]Record, error)

	// Get fetches one record by identifying name.
	// A missing record is reported as (nil, nil).
	Get(ctx context.Context, name string) (*Record, error)

	// Create inserts a record and returns it as stored.
	// Non-success responses are reported as *RemoteRejectedError.
	Create(ctx context.Context, payload Payload) (*Record, error)

	// Update applies a partial payload to the named record.
	Update(ctx context.Context, name string, payload Payload) (*Record, error)
}

// Config holds the sync settings loaded from configuration.
type Config struct {
	// DryRun logs every decision without mutating the target.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// Company restricts both inventories to one owning scope.
	Company string `mapstructure:"company" default:""`
	// MaxParentRetries caps the attempts to create a missing parent.
	MaxParentRetries int `mapstructure:"max_parent_retries" default:"5"`
	// RetryDelay is the fixed pause between parent creation attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay" default:"1s"`
	// Concurrency bounds the workers used within one depth level.
	Concurrency int `mapstructure:"concurrency" default:"1"`
	// Snapshot uploads both inventories to object storage before syncing.
	Snapshot bool `mapstructure:"snapshot" default:"false"`
	// History persists runs and decisions to the database.
	History bool `mapstructure:"history" default:"false"`
}

// Options returns the reconciler options described by the config.
func (c Config) Options() Options {
	return Options{
		DryRun:           c.DryRun,
		Company:          c.Company,
		MaxParentRetries: c.MaxParentRetries,
		RetryDelay:       c.RetryDelay,
		Concurrency:      c.Concurrency,
	}
}
