package models

// Status is the procedural state of a person in custody.
type Status string

const (
	StatusTriagem         Status = "Triagem"
	StatusProvisorio      Status = "Provisório"
	StatusSentenciado     Status = "Sentenciado"
	StatusSaidaTemporaria Status = "Saída Temporária"
	StatusTransferido     Status = "Transferido"
	StatusFuga            Status = "Fuga"
	StatusHospitalizado   Status = "Hospitalizado"
)

// DefaultStatus is applied to intake records and to any unrecognized value.
const DefaultStatus = StatusTriagem

var statuses = []Status{
	StatusTriagem,
	StatusProvisorio,
	StatusSentenciado,
	StatusSaidaTemporaria,
	StatusTransferido,
	StatusFuga,
	StatusHospitalizado,
}

// Statuses lists the closed set in display order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) IsValid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus returns v when it is an exact member of the closed set and
// DefaultStatus otherwise. It never fails.
func ParseStatus(v string) Status {
	if s := Status(v); s.IsValid() {
		return s
	}
	return DefaultStatus
}
