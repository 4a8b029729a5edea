package accounts

import (
	"strings"

	"account-sync/core/reconcile"
	"account-sync/core/remote"
	"account-sync/core/utils"
)

// ListFields are the fields requested on inventory listings.
var ListFields = []string{
	string(reconcile.FieldName),
	string(reconcile.FieldParent),
	string(reconcile.FieldDisplayName),
	string(reconcile.FieldIsGroup),
	string(reconcile.FieldCompany),
	string(reconcile.FieldType),
	string(reconcile.FieldRootType),
	string(reconcile.FieldReportType),
}

// ProtectedFields are never read into a Record and never sent.
var ProtectedFields = []string{
	"account_currency",
	"balance",
	"total_debit",
	"total_credit",
	"creation",
	"modified",
	"modified_by",
	"owner",
	"idx",
	"docstatus",
}

var protected = func() map[string]bool {
	m := make(map[string]bool, len(ProtectedFields))
	for _, f := range ProtectedFields {
		m[f] = true
	}
	return m
}()

// IsProtected reports whether field must never be compared or written.
func IsProtected(field string) bool {
	return protected[field]
}

// Strip returns a copy of doc without protected fields.
func Strip(doc remote.Document) remote.Document {
	out := make(remote.Document, len(doc))
	for k, v := range doc {
		if protected[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// DecodeRecord converts a remote document into a Record. Protected and unknown
// fields are ignored; string values are trimmed.
func DecodeRecord(doc remote.Document) reconcile.Record {
	str := func(f reconcile.Field) string {
		return strings.TrimSpace(utils.ToString(doc[string(f)]))
	}
	return reconcile.Record{
		Name:        str(reconcile.FieldName),
		DisplayName: str(reconcile.FieldDisplayName),
		Parent:      str(reconcile.FieldParent),
		IsGroup:     utils.ToBool(doc[string(reconcile.FieldIsGroup)]),
		Type:        str(reconcile.FieldType),
		RootType:    str(reconcile.FieldRootType),
		ReportType:  str(reconcile.FieldReportType),
		Company:     str(reconcile.FieldCompany),
	}
}

// EncodePayload converts a reconcile payload into a request document.
// Protected fields are dropped even if a caller put them in the payload.
func EncodePayload(p reconcile.Payload) remote.Document {
	doc := make(remote.Document, len(p))
	for f, v := range p {
		if protected[string(f)] {
			continue
		}
		doc[string(f)] = v
	}
	return doc
}
