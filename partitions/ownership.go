package partitions

import (
	"github.com/cmesse/belfem-sub005/mesh"
)

// RepairReport counts the sweeps each owner fixpoint needed
type RepairReport struct {
	FacetSweeps int
	mesh.OwnerSweeps
}

// RepairOwners makes facet owners consistent with their elements. A facet
// is owned by the smaller owner of its master and slave; whenever a flagged
// neighbor holds a larger owner it is lowered to the facet's. Sweeps repeat
// until one pass changes nothing. Owners only decrease, so the loop ends.
// Ghost, node, vertex and connector owners are settled afterwards.
func RepairOwners(m *mesh.Mesh, flagged []bool) (RepairReport, error) {
	var report RepairReport
	elements := m.Elements()
	for {
		report.FacetSweeps++
		changed := false
		for _, f := range m.Facets() {
			if f.IsGhost() || f.Master == mesh.NoElement {
				continue
			}
			master := elements[f.Master]
			owner := master.Owner
			var slave *mesh.Element
			if f.HasSlave() {
				slave = elements[f.Slave]
				owner = min(owner, slave.Owner)
			}
			f.Owner = owner
			f.Element.Owner = owner

			if flagged[master.Index] && master.Owner > owner {
				master.Owner = owner
				changed = true
			}
			if slave != nil && flagged[slave.Index] && slave.Owner > owner {
				slave.Owner = owner
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	sweeps, err := m.SettleOwners()
	if err != nil {
		return report, err
	}
	report.OwnerSweeps = sweeps
	return report, nil
}
