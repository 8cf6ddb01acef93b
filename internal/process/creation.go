package process

import (
	"fmt"

	"github.com/nanocl-project/nanocld/internal/runtime"
)

// LabelCargo / LabelVm / LabelNamespace match the daemon's container label
// convention, used both to tag new containers and to find existing ones via
// Client.ListByLabel.
const (
	LabelCargo     = "io.nanocl.c"
	LabelVm        = "io.nanocl.v"
	LabelNamespace = "io.nanocl.n"
)

// DefaultQemuImage is the pinned runtime image used to host VM guests.
const DefaultQemuImage = "ghcr.io/next-hat/nanocl-qemu:8.0.2.0"

// CargoContainerSpec is the subset of a Cargo's minted Spec the reconciler
// needs to build a runtime ContainerConfig.
type CargoContainerSpec struct {
	Image  string
	Cmd    []string
	Env    []string
	Mounts []runtime.Mount
}

// BuildCargoContainerConfig derives one replica's ContainerConfig, labelled
// by the parent kind_key and namespace. replicaIndex distinguishes sibling
// containers under the same kind_key.
func BuildCargoContainerConfig(kindKey, namespace, name string, replicaIndex int, spec CargoContainerSpec) runtime.ContainerConfig {
	return runtime.ContainerConfig{
		Name:   fmt.Sprintf("%s-%d", kindKey, replicaIndex),
		Image:  spec.Image,
		Cmd:    spec.Cmd,
		Env:    spec.Env,
		Mounts: spec.Mounts,
		Labels: map[string]string{
			LabelCargo:     kindKey,
			LabelNamespace: namespace,
		},
		Network: namespace,
	}
}

// VmHostConfig is the subset of a VM's Spec controlling the QEMU invocation.
type VmHostConfig struct {
	KVM          bool
	CPU          int64 // 0 defaults to 1
	MemoryMiB    int64 // 0 defaults to 512
	ImagePath    string
	User         string
	Password     string
	SSHKey       string
	DeleteSSHKey bool
}

// BuildVmContainerConfig derives the single QEMU-hosting container's config
// for a VM. Exactly one container backs a VM, regardless of replication
// (VMs are not replicated). kindKey already carries the VM's ".v" suffix
// (see model.Vm{key = "<name>.<namespace>.v"}), so it is used verbatim as
// the container name rather than suffixed again.
func BuildVmContainerConfig(kindKey, namespace string, hc VmHostConfig) runtime.ContainerConfig {
	cpu := hc.CPU
	if cpu <= 0 {
		cpu = 1
	}
	mem := hc.MemoryMiB
	if mem <= 0 {
		mem = 512
	}

	cmd := []string{"-hda", hc.ImagePath, "--nographic"}
	devices := []string{"/dev/net/tun"}
	if hc.KVM {
		cmd = append(cmd, "-accel", "kvm")
		devices = append(devices, "/dev/kvm")
	}

	env := []string{
		"DEFAULT_INTERFACE=eth0",
		"FROM_NETWORK=" + namespace,
		fmt.Sprintf("DELETE_SSH_KEY=%t", hc.DeleteSSHKey),
	}
	if hc.User != "" {
		env = append(env, "USER="+hc.User)
	}
	if hc.Password != "" {
		env = append(env, "PASSWORD="+hc.Password)
	}
	if hc.SSHKey != "" {
		env = append(env, "SSH_KEY="+hc.SSHKey)
	}

	return runtime.ContainerConfig{
		Name:     kindKey,
		Image:    DefaultQemuImage,
		Cmd:      cmd,
		Env:      env,
		CPUCount: cpu,
		MemoryMiB: mem,
		Devices:  devices,
		Mounts: []runtime.Mount{
			{Source: hc.ImagePath, Target: hc.ImagePath},
		},
		Labels: map[string]string{
			LabelVm:        kindKey,
			LabelNamespace: namespace,
		},
		Network: namespace,
	}
}

// JobContainerSpec describes one container in a job's container list.
type JobContainerSpec struct {
	Name  string
	Image string
	Cmd   []string
	Env   []string
}

// BuildJobContainerConfigs derives one-shot container configs for every
// entry in a job's container list.
func BuildJobContainerConfigs(kindKey string, containers []JobContainerSpec) []runtime.ContainerConfig {
	configs := make([]runtime.ContainerConfig, 0, len(containers))
	for _, c := range containers {
		configs = append(configs, runtime.ContainerConfig{
			Name:  fmt.Sprintf("%s-%s", kindKey, c.Name),
			Image: c.Image,
			Cmd:   c.Cmd,
			Env:   c.Env,
			Labels: map[string]string{
				"io.nanocl.j": kindKey,
			},
		})
	}
	return configs
}
