package inventory

// ResourceKind distinguishes the inventory surfaces the engine scores.
type ResourceKind string

const (
	KindVM   ResourceKind = "vm"
	KindDisk ResourceKind = "disk"
)

// PowerState is the coarse power state of a VM.
type PowerState string

const (
	PowerRunning     PowerState = "running"
	PowerStopped     PowerState = "stopped"
	PowerDeallocated PowerState = "deallocated"
	PowerUnknown     PowerState = "unknown"
)

// Resource is one inventory entry: a VM or a disk, with the facts the
// recommendation scorer needs.
type Resource struct {
	ID           string
	Name         string
	Kind         ResourceKind
	InstanceType string // VMs only, e.g. t3.medium
	State        string // raw provider state
	Location     string
	Tags         map[string]string

	// Disk facts.
	SizeGB     int32
	AttachedTo string // empty when unattached
}

// Attached reports whether a disk resource is attached to a VM.
func (r Resource) Attached() bool { return r.AttachedTo != "" }
