package payroll

import (
	"strconv"
	"strings"
)

// CenterLookup answers center master-data questions for the ownership resolver.
type CenterLookup interface {
	Lookup(branchID, centerCode string) (Center, bool)
	// LookupUnique finds a center by code alone when exactly one branch registers it.
	LookupUnique(centerCode string) (Center, bool)
}

type centerKey struct {
	branchID string
	code     string
}

// CenterDirectory is an in-memory snapshot of the center master table.
type CenterDirectory struct {
	byKey  map[centerKey]Center
	byCode map[string][]Center
}

func NewCenterDirectory(centers []Center) *CenterDirectory {
	dir := &CenterDirectory{
		byKey:  make(map[centerKey]Center, len(centers)),
		byCode: make(map[string][]Center, len(centers)),
	}
	for _, center := range centers {
		key := centerKey{branchID: strings.TrimSpace(center.BranchID), code: normalizeCode(center.CenterCode)}
		if _, dup := dir.byKey[key]; dup {
			continue
		}
		dir.byKey[key] = center
		dir.byCode[key.code] = append(dir.byCode[key.code], center)
	}
	return dir
}

func (d *CenterDirectory) Lookup(branchID, centerCode string) (Center, bool) {
	if d == nil {
		return Center{}, false
	}
	center, ok := d.byKey[centerKey{branchID: strings.TrimSpace(branchID), code: normalizeCode(centerCode)}]
	return center, ok
}

func (d *CenterDirectory) LookupUnique(centerCode string) (Center, bool) {
	if d == nil {
		return Center{}, false
	}
	matches := d.byCode[normalizeCode(centerCode)]
	if len(matches) != 1 {
		return Center{}, false
	}
	return matches[0], true
}

func (d *CenterDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byKey)
}

// ResolveOwnership classifies a collection record against current center master data.
// It ignores record.RecordedType so that reassigning a center reclassifies history.
func ResolveOwnership(record CollectionRecord, centers CenterLookup) Ownership {
	if centers != nil {
		if center, ok := centers.Lookup(record.BranchID, record.CenterCode); ok {
			return classify(center, record.EmployeeID)
		}
		// the center may have moved to another branch after the record was written
		if center, ok := centers.LookupUnique(record.CenterCode); ok {
			return classify(center, record.EmployeeID)
		}
	}
	return parityOwnership(record.CenterCode)
}

func classify(center Center, employeeID string) Ownership {
	if strings.EqualFold(strings.TrimSpace(center.Type), CenterTypeOffice) {
		return OwnershipOffice
	}
	if center.AssignedEmployeeID != "" && center.AssignedEmployeeID == employeeID {
		return OwnershipOwn
	}
	return OwnershipOffice
}

// parityOwnership is the fallback for unregistered centers: odd codes are OWN.
// Non-numeric codes count as even.
func parityOwnership(centerCode string) Ownership {
	code, err := strconv.ParseInt(normalizeCode(centerCode), 10, 64)
	if err != nil {
		return OwnershipOffice
	}
	if code%2 != 0 {
		return OwnershipOwn
	}
	return OwnershipOffice
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
