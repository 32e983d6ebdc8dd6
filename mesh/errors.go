package mesh

import "errors"

var (
	// ErrNoFacetMaster indicates no element matches a facet's corner nodes.
	ErrNoFacetMaster = errors.New("mesh: no master element found for facet")
	// ErrNonManifoldFacet indicates more than two elements match a facet.
	ErrNonManifoldFacet = errors.New("mesh: facet matches more than two elements")
	// ErrContainerPopulated indicates a derived container was populated twice.
	ErrContainerPopulated = errors.New("mesh: derived container already populated")
	// ErrNotFinalized indicates an operation that needs derived data ran too early.
	ErrNotFinalized = errors.New("mesh: mesh is not finalized")
	// ErrNoConnectivity indicates connectivity is disabled on this mesh.
	ErrNoConnectivity = errors.New("mesh: connectivity is disabled")
	// ErrUnknownNode indicates an element or facet references a missing node id.
	ErrUnknownNode = errors.New("mesh: unknown node id")
	// ErrUnknownElement indicates a reference to a missing element id.
	ErrUnknownElement = errors.New("mesh: unknown element id")
	// ErrDuplicateID indicates an id is already taken in its container.
	ErrDuplicateID = errors.New("mesh: duplicate id")
	// ErrNodeCount indicates a node list does not fit the element type.
	ErrNodeCount = errors.New("mesh: node count does not match element type")
	// ErrGhostCountMismatch indicates a ghost block and its sideset disagree in size.
	ErrGhostCountMismatch = errors.New("mesh: ghost facet count does not match ghost element count")
	// ErrLayerInserted indicates a Layer bundle was inserted twice.
	ErrLayerInserted = errors.New("mesh: layer already inserted")
)
