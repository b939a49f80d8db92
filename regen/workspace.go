package regen

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace manages the on-disk working directories a regeneration reads
// and writes: Membership/, Node/, and Node/Schedules/. Regular files are
// cleared before each regeneration; directories are created idempotently.
// Concurrent regenerations against the same Workspace are not supported.
type Workspace struct {
	Root string
}

// NewWorkspace returns a Workspace rooted at root.
func NewWorkspace(root string) *Workspace { return &Workspace{Root: root} }

// Prepare creates (idempotently) and clears (of regular files only) every
// working directory, ready for a fresh regeneration invocation.
func (w *Workspace) Prepare() error {
	for _, dir := range w.dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := clearRegularFiles(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	return nil
}

func (w *Workspace) dirs() []string {
	return []string{
		w.membershipDir(),
		w.nodeDir(),
		w.nodeSchedulesDir(),
	}
}

func (w *Workspace) membershipDir() string   { return filepath.Join(w.Root, "Membership") }
func (w *Workspace) nodeDir() string          { return filepath.Join(w.Root, "Node") }
func (w *Workspace) nodeSchedulesDir() string { return filepath.Join(w.Root, "Node", "Schedules") }

// MembershipPath returns the path of the membership network XML artifact.
func (w *Workspace) MembershipPath() string {
	return filepath.Join(w.membershipDir(), "membership_network.xml")
}

// NodeNetworkPath returns the path of the per-node subnetwork descriptor
// for subnetwork index i.
func (w *Workspace) NodeNetworkPath(i int) string {
	return filepath.Join(w.nodeDir(), fmt.Sprintf("node_network%d.xml", i))
}

// NodeSchedulePath returns the path of the per-node subnetwork's solver
// output schedule for subnetwork index i.
func (w *Workspace) NodeSchedulePath(i int) string {
	return filepath.Join(w.nodeSchedulesDir(), fmt.Sprintf("node_schedule%d.xml", i))
}

func clearRegularFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
