package domain

// mandatoryDocuments are required of every supplier regardless of category.
var mandatoryDocuments = []DocumentType{
	DocCompanyProfile,
	DocIncorporation,
	DocCR14OrCR6,
	DocVATCertificate,
	DocTaxClearance,
	DocFDMSCompliance,
}

// categoryDocuments lists the extra artifacts a category must provide.
// Categories absent from the map require only the mandatory set.
var categoryDocuments = map[BusinessCategory][]DocumentType{
	CategoryFoodBeverage:     {DocHealthCert, DocISO9001},
	CategoryHealthcare:       {DocHealthCert, DocISO9001, DocISO45001},
	CategoryManufacturing:    {DocISO9001, DocISO14000, DocISO45001},
	CategoryConstruction:     {DocISO45001, DocISO14000, DocSHEQPolicy},
	CategoryCleaningServices: {DocHealthCert, DocSHEQPolicy},
	CategorySecurityServices: {DocInternalQMS},
}

// RequiredDocuments returns the mandatory documents plus the
// category-specific ones for the given business category.
func RequiredDocuments(category BusinessCategory) []DocumentType {
	required := make([]DocumentType, 0, len(mandatoryDocuments)+3)
	required = append(required, mandatoryDocuments...)
	required = append(required, categoryDocuments[category]...)
	return required
}
