package taxexport

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const elsterNamespace = "http://www.elster.de/elsterxml/schema/v11"

// Kennzahlen are the UStVA fields. Kz81, Kz86 and Kz48 are whole euros,
// Kz66 and Kz83 are amounts with cents.
type Kennzahlen struct {
	Kz81 decimal.Decimal
	Kz86 decimal.Decimal
	Kz48 decimal.Decimal
	Kz66 decimal.Decimal
	Kz83 decimal.Decimal
}

// ComputeKennzahlen derives the UStVA fields from a VAT summary. Output VAT is
// taken from the truncated Kz81 and Kz86 bases as the tax office does.
func ComputeKennzahlen(s VATSummary) Kennzahlen {
	kz81 := s.NetIncome(valueobject.VATStandard).Truncate(0)
	kz86 := s.NetIncome(valueobject.VATReduced).Truncate(0)
	kz48 := s.NetIncome(valueobject.VATZero).Truncate(0)
	output := valueobject.RoundCents(kz81.Mul(valueobject.VATStandard.Factor())).
		Add(valueobject.RoundCents(kz86.Mul(valueobject.VATReduced.Factor())))
	kz66 := valueobject.RoundCents(s.InputVAT)
	return Kennzahlen{
		Kz81: kz81,
		Kz86: kz86,
		Kz48: kz48,
		Kz66: kz66,
		Kz83: output.Sub(kz66),
	}
}

type elsterDoc struct {
	XMLName        xml.Name             `xml:"Elster"`
	Xmlns          string               `xml:"xmlns,attr"`
	TransferHeader elsterTransferHeader `xml:"TransferHeader"`
	DatenTeil      elsterDatenTeil      `xml:"DatenTeil"`
}

type elsterTransferHeader struct {
	Version        string      `xml:"version,attr"`
	Verfahren      string      `xml:"Verfahren"`
	DatenArt       string      `xml:"DatenArt"`
	Vorgang        string      `xml:"Vorgang"`
	Testmerker     string      `xml:"Testmerker,omitempty"`
	HerstellerID   string      `xml:"HerstellerID"`
	DatenLieferant string      `xml:"DatenLieferant"`
	Datei          elsterDatei `xml:"Datei"`
}

type elsterDatei struct {
	Verschluesselung    string `xml:"Verschluesselung"`
	Kompression         string `xml:"Kompression"`
	TransportSchluessel string `xml:"TransportSchluessel"`
}

type elsterDatenTeil struct {
	Nutzdatenblock elsterNutzdatenblock `xml:"Nutzdatenblock"`
}

type elsterNutzdatenblock struct {
	NutzdatenHeader elsterNutzdatenHeader `xml:"NutzdatenHeader"`
	Nutzdaten       elsterNutzdaten       `xml:"Nutzdaten"`
}

type elsterNutzdatenHeader struct {
	Version         string           `xml:"version,attr"`
	NutzdatenTicket string           `xml:"NutzdatenTicket"`
	Empfaenger      elsterEmpfaenger `xml:"Empfaenger"`
}

type elsterEmpfaenger struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type elsterNutzdaten struct {
	Anmeldungssteuern elsterAnmeldungssteuern `xml:"Anmeldungssteuern"`
}

type elsterAnmeldungssteuern struct {
	Art              string           `xml:"art,attr"`
	Version          string           `xml:"version,attr"`
	DatenLieferant   elsterLieferant  `xml:"DatenLieferant"`
	Erstellungsdatum string           `xml:"Erstellungsdatum"`
	Steuerfall       elsterSteuerfall `xml:"Steuerfall"`
}

type elsterLieferant struct {
	Name    string `xml:"Name"`
	Strasse string `xml:"Strasse,omitempty"`
	PLZ     string `xml:"PLZ,omitempty"`
	Ort     string `xml:"Ort,omitempty"`
	Telefon string `xml:"Telefon,omitempty"`
	Email   string `xml:"Email,omitempty"`
}

type elsterSteuerfall struct {
	UStVA elsterUStVA `xml:"Umsatzsteuervoranmeldung"`
}

type elsterUStVA struct {
	Jahr         string `xml:"Jahr"`
	Zeitraum     string `xml:"Zeitraum"`
	Steuernummer string `xml:"Steuernummer"`
	Kz09         string `xml:"Kz09"`
	Kz81         string `xml:"Kz81,omitempty"`
	Kz86         string `xml:"Kz86,omitempty"`
	Kz48         string `xml:"Kz48,omitempty"`
	Kz66         string `xml:"Kz66,omitempty"`
	Kz83         string `xml:"Kz83"`
}

// ELSTERInput bundles what an UStVA document needs
type ELSTERInput struct {
	Company    *company.Company
	Period     Period
	Kennzahlen Kennzahlen
	CreatedAt  time.Time
	// HerstellerID is the manufacturer id assigned by the tax administration
	HerstellerID string
	Test         bool
}

// ValidateELSTER checks the company can file an advance VAT return
func ValidateELSTER(c *company.Company) error {
	if c.Tax.SmallBusiness {
		return shared.NewDomainError("VAT_EXEMPT", "Small businesses under § 19 UStG do not file advance VAT returns")
	}
	if c.ELSTERTaxNumber() == "" {
		return shared.NewDomainError("ELSTER_SETTINGS_MISSING", "A 13-digit ELSTER tax number is required")
	}
	return nil
}

// WriteELSTER renders the UStVA XML document
func WriteELSTER(in ELSTERInput) ([]byte, error) {
	if err := ValidateELSTER(in.Company); err != nil {
		return nil, err
	}
	c := in.Company
	herstellerID := in.HerstellerID
	if herstellerID == "" {
		herstellerID = "74931"
	}
	testmerker := ""
	if in.Test {
		testmerker = "700000004"
	}
	kz := in.Kennzahlen
	lieferant := elsterLieferant{
		Name:    c.Name,
		Strasse: c.Address.Street,
		PLZ:     c.Address.PostalCode,
		Ort:     c.Address.City,
		Telefon: c.Phone,
		Email:   c.Email,
	}

	doc := elsterDoc{
		Xmlns: elsterNamespace,
		TransferHeader: elsterTransferHeader{
			Version:        "11",
			Verfahren:      "ElsterAnmeldung",
			DatenArt:       "UStVA",
			Vorgang:        "send-Auth",
			Testmerker:     testmerker,
			HerstellerID:   herstellerID,
			DatenLieferant: c.Name,
			Datei: elsterDatei{
				Verschluesselung:    "CMSEncryptedData",
				Kompression:         "GZIP",
				TransportSchluessel: "",
			},
		},
		DatenTeil: elsterDatenTeil{Nutzdatenblock: elsterNutzdatenblock{
			NutzdatenHeader: elsterNutzdatenHeader{
				Version:         "11",
				NutzdatenTicket: fmt.Sprintf("%d", in.CreatedAt.Unix()),
				Empfaenger:      elsterEmpfaenger{ID: "F", Value: c.ELSTERTaxNumber()[:4]},
			},
			Nutzdaten: elsterNutzdaten{Anmeldungssteuern: elsterAnmeldungssteuern{
				Art:              "UStVA",
				Version:          fmt.Sprintf("%d01", in.Period.Year),
				DatenLieferant:   lieferant,
				Erstellungsdatum: in.CreatedAt.Format("20060102"),
				Steuerfall: elsterSteuerfall{UStVA: elsterUStVA{
					Jahr:         fmt.Sprintf("%d", in.Period.Year),
					Zeitraum:     in.Period.Code,
					Steuernummer: c.ELSTERTaxNumber(),
					Kz09:         kz09(herstellerID, c),
					Kz81:         wholeEuros(kz.Kz81),
					Kz86:         wholeEuros(kz.Kz86),
					Kz48:         wholeEuros(kz.Kz48),
					Kz66:         cents(kz.Kz66),
					Kz83:         kz.Kz83.StringFixed(2),
				}},
			}},
		}},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal UStVA: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func kz09(herstellerID string, c *company.Company) string {
	return strings.Join([]string{herstellerID, c.Name}, "*")
}

func wholeEuros(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.Truncate(0).String()
}

func cents(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
