// Package school holds the record that flows through the ingestion pipeline
// and the categorical values it carries.
package school

import (
	"fmt"
	"strings"
	"time"
)

type Level string

const (
	Kindergarten Level = "kindergarten"
	Primary      Level = "primary"
	Secondary    Level = "secondary"
	Tertiary     Level = "tertiary"
)

var Levels = []Level{Kindergarten, Primary, Secondary, Tertiary}

func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q", s)
}

type Funding string

const (
	Government    Funding = "government"
	Aided         Funding = "aided"
	DirectSubsidy Funding = "direct_subsidy"
	Private       Funding = "private"
	UnknownFund   Funding = "unknown"
)

type Gender string

const (
	Boys  Gender = "boys"
	Girls Gender = "girls"
	Coed  Gender = "coed"
)

// Trust ranks sources. A higher value may overwrite the provenance of a
// lower one, never the reverse.
type Trust int

const (
	TrustManual Trust = iota
	TrustDirectory
	TrustRegistry
)

func (t Trust) String() string {
	switch t {
	case TrustRegistry:
		return "registry"
	case TrustDirectory:
		return "directory"
	default:
		return "manual"
	}
}

func ParseTrust(s string) (Trust, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registry":
		return TrustRegistry, nil
	case "directory":
		return TrustDirectory, nil
	case "manual", "":
		return TrustManual, nil
	}
	return TrustManual, fmt.Errorf("unknown trust level %q", s)
}

// knownSources maps source tags written before trust was stored alongside
// them.
var knownSources = map[string]Trust{
	"edb":          TrustRegistry,
	"registry":     TrustRegistry,
	"schooland.hk": TrustDirectory,
	"directory":    TrustDirectory,
}

// TrustOfSource infers the trust of a source tag. Unknown tags rank as
// manual.
func TrustOfSource(source string) Trust {
	return knownSources[strings.ToLower(strings.TrimSpace(source))]
}

type Identity struct {
	Name     string
	District string
}

type Contact struct {
	Phone        string
	Fax          string
	Address      string
	LocalAddress string
	Website      string
}

type Leadership struct {
	Principal  string
	Supervisor string
}

type Provenance struct {
	Source    string
	Trust     Trust
	FetchedAt time.Time
}

// Inferred marks categorical values that came from a fallback default
// rather than a signal in the source.
type Inferred struct {
	Level   bool
	Funding bool
	Gender  bool
}

// Record is one school as parsed from a source page. Empty strings mean the
// source did not provide the value.
type Record struct {
	Identity
	LocalName    string
	Level        Level
	Funding      Funding
	Gender       Gender
	Contact      Contact
	Leadership   Leadership
	ExternalCode string
	Provenance   Provenance
	Inferred     Inferred
}

// Bucket is the classification bucket used in run reports.
func (r Record) Bucket() string {
	return string(r.Level) + "/" + string(r.Funding)
}

// NormalizeKey folds a name or district for identity comparison.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
