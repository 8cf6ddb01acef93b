// Package model defines the daemon's persisted entity shapes, shared by the
// store, the spec registry, the reconciler, and the HTTP API.
package model

import (
	"encoding/json"
	"time"
)

// Namespace groups cargoes, vms, and resources under one name.
type Namespace struct {
	Name      string    `db:"name" json:"Name"`
	CreatedAt time.Time `db:"created_at" json:"CreatedAt"`
}

// Spec is one immutable revision of an object's desired configuration.
// Spec rows are append-only: creating a new version never mutates an
// existing row, it inserts a new one and repoints the owner's spec_key.
type Spec struct {
	Key       string          `db:"key" json:"Key"`
	CreatedAt time.Time       `db:"created_at" json:"CreatedAt"`
	KindName  string          `db:"kind_name" json:"KindName"`
	KindKey   string          `db:"kind_key" json:"KindKey"`
	Version   string          `db:"version" json:"Version"`
	Data      json.RawMessage `db:"data" json:"Data"`
	Metadata  *json.RawMessage `db:"metadata" json:"Metadata,omitempty"`
}

// Cargo is a container-workload definition within a namespace.
type Cargo struct {
	Key           string    `db:"key" json:"Key"`
	CreatedAt     time.Time `db:"created_at" json:"CreatedAt"`
	Name          string    `db:"name" json:"Name"`
	SpecKey       string    `db:"spec_key" json:"SpecKey"`
	NamespaceName string    `db:"namespace_name" json:"NamespaceName"`
}

// Vm is a virtual-machine workload definition within a namespace.
type Vm struct {
	Key           string    `db:"key" json:"Key"`
	CreatedAt     time.Time `db:"created_at" json:"CreatedAt"`
	Name          string    `db:"name" json:"Name"`
	SpecKey       string    `db:"spec_key" json:"SpecKey"`
	NamespaceName string    `db:"namespace_name" json:"NamespaceName"`
}

// VmImage describes a disk image usable as a VM's root volume.
type VmImage struct {
	Name        string    `db:"name" json:"Name"`
	CreatedAt   time.Time `db:"created_at" json:"CreatedAt"`
	Kind        string    `db:"kind" json:"Kind"`
	Path        string    `db:"path" json:"Path"`
	Format      string    `db:"format" json:"Format"`
	SizeActual  int64     `db:"size_actual" json:"SizeActual"`
	SizeVirtual int64     `db:"size_virtual" json:"SizeVirtual"`
	Parent      *string   `db:"parent" json:"Parent,omitempty"`
}

// Job is a one-shot task definition, not namespaced.
type Job struct {
	Key       string           `db:"key" json:"Key"`
	CreatedAt time.Time        `db:"created_at" json:"CreatedAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"UpdatedAt"`
	Data      json.RawMessage  `db:"data" json:"Data"`
	Metadata  *json.RawMessage `db:"metadata" json:"Metadata,omitempty"`
}

// Resource is a generic, kind-tagged configuration object (proxy rules,
// resource-kind-defined custom configs).
type Resource struct {
	Key       string    `db:"key" json:"Key"`
	CreatedAt time.Time `db:"created_at" json:"CreatedAt"`
	Kind      string    `db:"kind" json:"Kind"`
	SpecKey   string    `db:"spec_key" json:"SpecKey"`
}

// ResourceKind registers a resource kind's validation/lifecycle contract.
type ResourceKind struct {
	Name      string    `db:"name" json:"Name"`
	CreatedAt time.Time `db:"created_at" json:"CreatedAt"`
	SpecKey   string    `db:"spec_key" json:"SpecKey"`
}

// Secret is an immutable-once-set sensitive value, encrypted at rest.
type Secret struct {
	Key       string           `db:"key" json:"Key"`
	CreatedAt time.Time        `db:"created_at" json:"CreatedAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"UpdatedAt"`
	Kind      string           `db:"kind" json:"Kind"`
	Immutable bool             `db:"immutable" json:"Immutable"`
	Data      json.RawMessage  `db:"data" json:"Data"`
	Metadata  *json.RawMessage `db:"metadata" json:"Metadata,omitempty"`
}

// Node is a cluster member reachable for process scheduling.
type Node struct {
	Name      string    `db:"name" json:"Name"`
	IPAddress string    `db:"ip_address" json:"IpAddress"`
	CreatedAt time.Time `db:"created_at" json:"CreatedAt"`
}

// NodeGroup names a set of nodes usable by Replication's node-group targets.
type NodeGroup struct {
	Name string `db:"name" json:"Name"`
}

// NodeGroupLink associates a node with a node group.
type NodeGroupLink struct {
	RowID         int64  `db:"rowid" json:"-"`
	NodeName      string `db:"node_name" json:"NodeName"`
	NodeGroupName string `db:"node_group_name" json:"NodeGroupName"`
}

// Process is a single scheduled runtime instance (container) backing a
// Cargo, Vm, or Job, on a specific node.
type Process struct {
	Key       string          `db:"key" json:"Key"`
	CreatedAt time.Time       `db:"created_at" json:"CreatedAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"UpdatedAt"`
	Name      string          `db:"name" json:"Name"`
	Kind      string          `db:"kind" json:"Kind"`
	Data      json.RawMessage `db:"data" json:"Data"`
	NodeKey   string          `db:"node_key" json:"NodeKey"`
	KindKey   string          `db:"kind_key" json:"KindKey"`
}

// ObjectKind enumerates the kinds a Process/Spec/ObjPsStatus can belong to.
type ObjectKind string

const (
	KindCargo    ObjectKind = "Cargo"
	KindVm       ObjectKind = "Vm"
	KindJob      ObjectKind = "Job"
	KindResource ObjectKind = "Resource"
)

// Status is one of the ObjPsStatus lifecycle states.
type Status string

const (
	StatusCreated  Status = "Created"
	StatusStarting Status = "Starting"
	StatusRunning  Status = "Running"
	StatusStopping Status = "Stopping"
	StatusStopped  Status = "Stopped"
	StatusFailed   Status = "Failed"
	StatusUnknown  Status = "Unknown"
)

// ObjPsStatus tracks an object's wanted/actual lifecycle state, always
// writing the previous value alongside the new one on every transition.
type ObjPsStatus struct {
	Key        string    `db:"key" json:"Key"`
	Wanted     Status    `db:"wanted" json:"Wanted"`
	PrevWanted Status    `db:"prev_wanted" json:"PrevWanted"`
	Actual     Status    `db:"actual" json:"Actual"`
	PrevActual Status    `db:"prev_actual" json:"PrevActual"`
	UpdatedAt  time.Time `db:"updated_at" json:"UpdatedAt"`
}
