// File: internal/profile/store.go
// Description: Filesystem ProfileStore. Role, weapon and quest tables are
// plain YAML files parsed into typed structs and validated up front; a
// malformed table is fatal before the loop ever starts.

package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// FSStore loads static data tables from a directory:
//
//	<dir>/roles/<id>.yaml
//	<dir>/weapons.yaml
//	<dir>/quests.yaml
type FSStore struct {
	dir    string
	logger *zap.Logger
}

// NewFSStore creates a store rooted at dir.
func NewFSStore(dir string, logger *zap.Logger) *FSStore {
	return &FSStore{dir: dir, logger: logger.Named("profiles")}
}

// LoadRole reads and validates one role profile.
func (s *FSStore) LoadRole(id schemas.RoleID) (*schemas.RoleProfile, error) {
	path := filepath.Join(s.dir, "roles", string(id)+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	var rp schemas.RoleProfile
	if err := yaml.Unmarshal(data, &rp); err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	if rp.ID == "" {
		rp.ID = id
	}
	if rp.ID != id {
		return nil, &schemas.ConfigError{
			Source: path,
			Err:    fmt.Errorf("profile id %q does not match file name %q", rp.ID, id),
		}
	}
	if err := validateRole(&rp); err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	s.logger.Debug("Loaded role profile",
		zap.String("role", string(id)),
		zap.Int("behaviors", len(rp.Behaviors)),
	)
	return &rp, nil
}

// LoadWeapons reads the static weapons table; a missing file is an empty table.
func (s *FSStore) LoadWeapons() ([]schemas.WeaponSet, error) {
	path := filepath.Join(s.dir, "weapons.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	var doc struct {
		Weapons []schemas.WeaponSet `yaml:"weapons"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	for i, w := range doc.Weapons {
		if w.Name == "" || w.SwapKey == "" {
			return nil, &schemas.ConfigError{
				Source: path,
				Err:    fmt.Errorf("weapons[%d]: name and swap_key are required", i),
			}
		}
	}
	return doc.Weapons, nil
}

// LoadQuests reads the static quest table; a missing file is an empty table.
func (s *FSStore) LoadQuests() ([]schemas.QuestDef, error) {
	path := filepath.Join(s.dir, "quests.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	var doc struct {
		Quests []schemas.QuestDef `yaml:"quests"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &schemas.ConfigError{Source: path, Err: err}
	}
	for i, q := range doc.Quests {
		if q.ID == "" || q.Marker == "" {
			return nil, &schemas.ConfigError{
				Source: path,
				Err:    fmt.Errorf("quests[%d]: id and marker are required", i),
			}
		}
	}
	return doc.Quests, nil
}

func validateRole(rp *schemas.RoleProfile) error {
	if len(rp.Behaviors) == 0 {
		return fmt.Errorf("profile %q has no behaviors", rp.ID)
	}
	for i, b := range rp.Behaviors {
		if b.Name == "" {
			return fmt.Errorf("behaviors[%d]: name is required", i)
		}
		if b.ActionKey == "" {
			return fmt.Errorf("behavior %q: action is required", b.Name)
		}
		if b.Category == "" {
			return fmt.Errorf("behavior %q: category is required", b.Name)
		}
		if _, err := CompilePredicate(b.Trigger); err != nil {
			return fmt.Errorf("behavior %q: %w", b.Name, err)
		}
	}
	return nil
}

// -- Compiled profiles --

// CompiledBehavior pairs a declared behavior with its compiled trigger.
type CompiledBehavior struct {
	schemas.Behavior
	Trigger Predicate
	// DeclIndex is the behavior's position in the profile file, the
	// tie-break for equal priorities.
	DeclIndex int
}

// Compiled is a role profile ready for the decision engine: behaviors sorted
// by descending priority with declaration order preserved within a priority.
type Compiled struct {
	Profile   *schemas.RoleProfile
	Behaviors []CompiledBehavior
}

// Compile validates and compiles a loaded profile. The sort is stable, which
// is what makes equal-priority selection deterministic and testable.
func Compile(rp *schemas.RoleProfile) (*Compiled, error) {
	if err := validateRole(rp); err != nil {
		return nil, &schemas.ConfigError{Source: string(rp.ID), Err: err}
	}
	behaviors := make([]CompiledBehavior, len(rp.Behaviors))
	for i, b := range rp.Behaviors {
		pred, err := CompilePredicate(b.Trigger)
		if err != nil {
			return nil, &schemas.ConfigError{Source: string(rp.ID), Err: err}
		}
		behaviors[i] = CompiledBehavior{Behavior: b, Trigger: pred, DeclIndex: i}
	}
	sort.SliceStable(behaviors, func(i, j int) bool {
		return behaviors[i].Priority > behaviors[j].Priority
	})
	return &Compiled{Profile: rp, Behaviors: behaviors}, nil
}

// LoadCompiled is the common load-then-compile path.
func (s *FSStore) LoadCompiled(id schemas.RoleID) (*Compiled, error) {
	rp, err := s.LoadRole(id)
	if err != nil {
		return nil, err
	}
	return Compile(rp)
}
