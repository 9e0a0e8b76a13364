// Package holding defines the per-project checkout record.
package holding

// Holding records how many units of one hardware set a project currently
// has checked out. The composite key is (ProjectID, SetName).
//
// A holding exists only while Quantity > 0. The record is deleted when the
// quantity reaches exactly zero; absence of a record is the canonical
// representation of a zero holding.
type Holding struct {
	ProjectID string `json:"projectId" bson:"projectId"`
	SetName   string `json:"hwSetName" bson:"hwSetName"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}
