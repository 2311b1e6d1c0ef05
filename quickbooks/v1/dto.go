package v1

// Reference to another entity by id, e.g. {"value": "55", "name": "Jane"}.
type RefDTO struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type EmailAddressDTO struct {
	Address string `json:"Address"`
}

type TelephoneNumberDTO struct {
	FreeFormNumber string `json:"FreeFormNumber"`
}

type MetaDataDTO struct {
	CreateTime      string `json:"CreateTime,omitempty"`
	LastUpdatedTime string `json:"LastUpdatedTime,omitempty"`
}

// EmployeeDTO mirrors the Employee resource. SyncToken is the optimistic
// concurrency stamp the API requires on every mutation.
type EmployeeDTO struct {
	ID               string              `json:"Id,omitempty"`
	SyncToken        string              `json:"SyncToken,omitempty"`
	GivenName        string              `json:"GivenName,omitempty"`
	FamilyName       string              `json:"FamilyName,omitempty"`
	DisplayName      string              `json:"DisplayName,omitempty"`
	EmployeeNumber   string              `json:"EmployeeNumber,omitempty"`
	PrimaryEmailAddr *EmailAddressDTO    `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone     *TelephoneNumberDTO `json:"PrimaryPhone,omitempty"`
	Active           *bool               `json:"Active,omitempty"`
	Sparse           bool                `json:"sparse,omitempty"`
	MetaData         *MetaDataDTO        `json:"MetaData,omitempty"`
}

// TimeActivityDTO mirrors the TimeActivity resource. Hours and Minutes are
// deliberately not omitempty: a freshly clocked-in record carries explicit
// zeros, which the clock state machine depends on.
type TimeActivityDTO struct {
	ID             string       `json:"Id,omitempty"`
	SyncToken      string       `json:"SyncToken,omitempty"`
	NameOf         string       `json:"NameOf,omitempty"`
	EmployeeRef    *RefDTO      `json:"EmployeeRef,omitempty"`
	TxnDate        string       `json:"TxnDate,omitempty"`   // yyyy-MM-dd
	StartTime      string       `json:"StartTime,omitempty"` // HH:mm:ss
	EndTime        string       `json:"EndTime,omitempty"`
	Hours          int          `json:"Hours"`
	Minutes        int          `json:"Minutes"`
	Description    string       `json:"Description,omitempty"`
	BillableStatus string       `json:"BillableStatus,omitempty"`
	Sparse         bool         `json:"sparse,omitempty"`
	MetaData       *MetaDataDTO `json:"MetaData,omitempty"`
}

// QueryResponse is the envelope the /query endpoint wraps results in. Only
// the entity slices relevant to this integration are decoded.
type QueryResponse struct {
	Employee      []EmployeeDTO     `json:"Employee,omitempty"`
	TimeActivity  []TimeActivityDTO `json:"TimeActivity,omitempty"`
	StartPosition int               `json:"startPosition,omitempty"`
	MaxResults    int               `json:"maxResults,omitempty"`
}

type queryEnvelope struct {
	QueryResponse QueryResponse `json:"QueryResponse"`
}

type employeeEnvelope struct {
	Employee EmployeeDTO `json:"Employee"`
}

type timeActivityEnvelope struct {
	TimeActivity TimeActivityDTO `json:"TimeActivity"`
}
