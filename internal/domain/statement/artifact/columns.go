package artifact

import "sort"

// Role is the semantic meaning of a statement column.
type Role string

const (
	RoleDate        Role = "DATE"
	RoleDescription Role = "DESCRIPTION"
	RoleDebit       Role = "DEBIT"
	RoleCredit      Role = "CREDIT"
	RoleBalance     Role = "BALANCE"
	RoleAmount      Role = "AMOUNT"
	// RoleOther marks header cells that carry no known meaning, such as
	// "Chq No" or "Value Date". Their tokens are ignored.
	RoleOther Role = "OTHER"
)

// Roles lists the semantic roles in vocabulary order.
var Roles = []Role{RoleDate, RoleDescription, RoleDebit, RoleCredit, RoleBalance, RoleAmount}

// Valid reports whether r is part of the role vocabulary.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return r == RoleOther
}

// IsMoney reports whether tokens of this role carry numeric amounts.
func (r Role) IsMoney() bool {
	return r == RoleDebit || r == RoleCredit || r == RoleBalance || r == RoleAmount
}

// Column is an x-band with the header text that produced it.
type Column struct {
	Role   Role    `json:"role"`
	X0     float64 `json:"x0"`
	X1     float64 `json:"x1"`
	Header string  `json:"header"`
}

// ColumnMapping maps x-bands to roles. It is immutable once built.
type ColumnMapping struct {
	columns []Column
}

// NewColumnMapping copies cols and orders them left to right.
func NewColumnMapping(cols []Column) ColumnMapping {
	cp := make([]Column, len(cols))
	copy(cp, cols)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].X0 < cp[j].X0 })
	return ColumnMapping{columns: cp}
}

// IsEmpty reports whether no column was mapped.
func (m ColumnMapping) IsEmpty() bool { return len(m.columns) == 0 }

// Columns returns a copy of the mapped columns, left to right.
func (m ColumnMapping) Columns() []Column {
	cp := make([]Column, len(m.columns))
	copy(cp, m.columns)
	return cp
}

// Lookup returns the first column carrying role.
func (m ColumnMapping) Lookup(role Role) (Column, bool) {
	for _, c := range m.columns {
		if c.Role == role {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether role is mapped.
func (m ColumnMapping) Has(role Role) bool {
	_, ok := m.Lookup(role)
	return ok
}

// MappedRoles returns the distinct semantic roles in the mapping.
func (m ColumnMapping) MappedRoles() []Role {
	seen := make(map[Role]bool)
	var out []Role
	for _, c := range m.columns {
		if c.Role == RoleOther || seen[c.Role] {
			continue
		}
		seen[c.Role] = true
		out = append(out, c.Role)
	}
	return out
}

// RoleFor assigns a box to a column. A column wins when it contains the box
// widened by margin on both sides; otherwise the column holding the box's
// horizontal center wins. Anything else falls back to DESCRIPTION.
func (m ColumnMapping) RoleFor(box BBox, margin float64) Role {
	for _, c := range m.columns {
		if box.X0 >= c.X0-margin && box.X1 <= c.X1+margin {
			return c.Role
		}
	}
	cx := box.CenterX()
	for _, c := range m.columns {
		if cx >= c.X0 && cx < c.X1 {
			return c.Role
		}
	}
	return RoleDescription
}
