package domain

// Canonical field names for the accumulating application profile. The
// extractor only admits fields from this schema; everything else an LLM
// invents is discarded.
const (
	FieldFirstName        = "firstName"
	FieldLastName         = "lastName"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldAddress          = "address"
	FieldEmploymentStatus = "employmentStatus"
	FieldEmployer         = "employer"
	FieldIncome           = "income"
	FieldCreditScore      = "creditScore"
	FieldSSN              = "ssn"
	FieldPropertyType     = "propertyType"
	FieldPropertyAddress  = "propertyAddress"
	FieldLoanPurpose      = "loanPurpose"
	FieldDownPayment      = "downPayment"
	FieldLoanAmount       = "loanAmount"
	FieldTimeline         = "timeline"
)

// SchemaFields lists every field the extractor is allowed to produce.
var SchemaFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldAddress,
	FieldEmploymentStatus,
	FieldEmployer,
	FieldIncome,
	FieldCreditScore,
	FieldSSN,
	FieldPropertyType,
	FieldPropertyAddress,
	FieldLoanPurpose,
	FieldDownPayment,
	FieldLoanAmount,
	FieldTimeline,
}

// NumericFields are the schema fields that carry amounts or scores.
// Merges coerce their values to float64 so numeric reads downstream
// never see a quoted number.
var NumericFields = []string{
	FieldIncome,
	FieldCreditScore,
	FieldDownPayment,
	FieldLoanAmount,
}

// NumericField reports whether name carries a numeric value.
func NumericField(name string) bool {
	for _, f := range NumericFields {
		if f == name {
			return true
		}
	}
	return false
}

// KnownField reports whether name is part of the extraction schema.
func KnownField(name string) bool {
	for _, f := range SchemaFields {
		if f == name {
			return true
		}
	}
	return false
}

// DocumentChecklist is the fixed set of document types collected during
// the document_collection stage.
var DocumentChecklist = []string{
	"pay_stubs",
	"w2_forms",
	"tax_returns",
	"bank_statements",
	"identification",
	"proof_of_address",
}
