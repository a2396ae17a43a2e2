// Package extract pulls structured fields out of a record block using ordered
// rule lists, one per field.
package extract

const (
	FieldName         = "name"
	FieldLocalName    = "local_name"
	FieldAddress      = "address"
	FieldLocalAddress = "local_address"
	FieldPhone        = "phone"
	FieldFax          = "fax"
	FieldPrincipal    = "principal"
	FieldSupervisor   = "supervisor"
	FieldWebsite      = "website"
	FieldCode         = "school_code"
	FieldGender       = "gender"
)

// Partial is what a block yielded. Every field is optional; "" means no rule
// matched.
type Partial struct {
	Name         string
	LocalName    string
	Address      string
	LocalAddress string
	Phone        string
	Fax          string
	Principal    string
	Supervisor   string
	Website      string
	Code         string
	Gender       string
}

// Fields lists the non-empty fields by name.
func (p Partial) Fields() map[string]string {
	all := map[string]string{
		FieldName:         p.Name,
		FieldLocalName:    p.LocalName,
		FieldAddress:      p.Address,
		FieldLocalAddress: p.LocalAddress,
		FieldPhone:        p.Phone,
		FieldFax:          p.Fax,
		FieldPrincipal:    p.Principal,
		FieldSupervisor:   p.Supervisor,
		FieldWebsite:      p.Website,
		FieldCode:         p.Code,
		FieldGender:       p.Gender,
	}
	for k, v := range all {
		if v == "" {
			delete(all, k)
		}
	}
	return all
}

// FieldSet holds the ordered rules for every field of one source.
type FieldSet struct {
	Name         Rules
	LocalName    Rules
	Address      Rules
	LocalAddress Rules
	Phone        Rules
	Fax          Rules
	Principal    Rules
	Supervisor   Rules
	Website      Rules
	Code         Rules
	Gender       Rules
}

func (fs FieldSet) Extract(text string) Partial {
	in := NewInput(text)
	var p Partial
	p.Name, _ = fs.Name.First(in)
	p.LocalName, _ = fs.LocalName.First(in)
	p.Address, _ = fs.Address.First(in)
	p.LocalAddress, _ = fs.LocalAddress.First(in)
	p.Phone, _ = fs.Phone.First(in)
	p.Fax, _ = fs.Fax.First(in)
	p.Principal, _ = fs.Principal.First(in)
	p.Supervisor, _ = fs.Supervisor.First(in)
	p.Website, _ = fs.Website.First(in)
	p.Code, _ = fs.Code.First(in)
	p.Gender, _ = fs.Gender.First(in)
	return p
}
