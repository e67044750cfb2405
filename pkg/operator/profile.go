package operator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Profile is one named backend configuration. Every key besides scheme flows
// into the factory options untouched.
type Profile struct {
	Scheme  string            `yaml:"scheme"`
	Options map[string]string `yaml:",inline"`
}

// LoadProfiles reads a profiles file: a map of profile name to Profile.
func LoadProfiles(path string) (map[string]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, access.NewError(access.KindConfigInvalid, "cannot read profiles file").
			WithOperation("load_profiles").WithContext("path", path).WithCause(err)
	}
	profiles := make(map[string]Profile)
	if err := yaml.Unmarshal(raw, &profiles); err != nil {
		return nil, access.NewError(access.KindConfigInvalid, "profiles file is unparseable").
			WithOperation("load_profiles").WithContext("path", path).WithCause(err)
	}
	for name, p := range profiles {
		if p.Scheme == "" {
			return nil, access.NewError(access.KindConfigInvalid,
				fmt.Sprintf("profile %q has no scheme", name)).
				WithOperation("load_profiles").WithContext("path", path)
		}
	}
	return profiles, nil
}

// NewFromProfile builds an operator from one profile.
func (r *Registry) NewFromProfile(p Profile) (*Operator, error) {
	return r.New(access.SchemeFromString(p.Scheme), p.Options)
}
