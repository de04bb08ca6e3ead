// Package types contains the S5000F code lists shared across the application.
package types

// Namespaces and schema defaults of the isfDataset envelope.
const (
	Namespace       = "http://www.asd-europe.org/s-series/s5000f"
	XSINamespace    = "http://www.w3.org/2001/XMLSchema-instance"
	NamespacePrefix = "n1"
	RootTag         = "isfDataset"
	DefaultSchema   = "s5000f_2-0_isfdataset.xsd"
)

// Role is a message party role code.
type Role string

// Party roles.
const (
	RoleSender   Role = "S"
	RoleReceiver Role = "R"
)

// Message status codes.
const (
	StatusFinal = "F"
)

// Message type codes.
const (
	TypeUsageReport    = "UC50902"
	TypeAcknowledgment = "ACK"
	TypeObservation    = "OBS"
)

// Value determination means.
const (
	DeterminationMeasured = "MEAS"
)

// Units of measure.
const (
	UnitDegree    = "DGR"
	UnitMetre     = "MR"
	UnitPerMinute = "/MIN"
)

// CRUD codes carried on the root element.
const (
	CrudInsert = "I"
)

// DefaultClassification is the "not classified" security class.
const DefaultClassification = "NUC"
