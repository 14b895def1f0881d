// Package artifact resolves compiled contract factories by name from a Hardhat
// artifacts tree (artifacts/<source>.sol/<Name>.json).
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrNotFound means no artifact carries the requested contract name.
	ErrNotFound = errors.New("artifact not found")
	// ErrAmbiguous means several sources define a contract with the same name.
	ErrAmbiguous = errors.New("artifact name is ambiguous")
	// ErrUnlinked means the bytecode still references external libraries.
	ErrUnlinked = errors.New("artifact has unlinked libraries")
	// ErrNoBytecode means the artifact describes an interface or abstract contract.
	ErrNoBytecode = errors.New("artifact has no deployable bytecode")
)

// Factory carries everything needed to deploy and talk to one contract.
type Factory struct {
	Name       string
	SourceName string
	Path       string
	ABI        abi.ABI
	Bytecode   []byte
}

// HasMethods returns an error naming every method missing from the ABI.
func (f *Factory) HasMethods(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := f.ABI.Methods[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: abi lacks %s", f.Name, strings.Join(missing, ", "))
	}
	return nil
}

type linkRef struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

type hardhatArtifact struct {
	Format         string                          `json:"_format"`
	ContractName   string                          `json:"contractName"`
	SourceName     string                          `json:"sourceName"`
	ABI            json.RawMessage                 `json:"abi"`
	Bytecode       string                          `json:"bytecode"`
	LinkReferences map[string]map[string][]linkRef `json:"linkReferences"`
}

// Find walks dir for the artifact of the named contract. The name may be fully
// qualified ("contracts/Market.sol:MarketPlace") to pick between duplicates.
func Find(dir, name string) (*Factory, error) {
	source, contract := splitQualified(name)
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != contract+".json" {
			return nil
		}
		if source != "" && filepath.Base(filepath.Dir(path)) != filepath.Base(source) {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var factories []*Factory
	for _, path := range matches {
		f, err := Read(path)
		if err != nil {
			return nil, err
		}
		if f.Name != contract {
			continue
		}
		if source != "" && f.SourceName != source {
			continue
		}
		factories = append(factories, f)
	}

	switch len(factories) {
	case 0:
		return nil, fmt.Errorf("%s in %s: %w", name, dir, ErrNotFound)
	case 1:
		return factories[0], nil
	default:
		sources := make([]string, 0, len(factories))
		for _, f := range factories {
			sources = append(sources, f.SourceName+":"+f.Name)
		}
		sort.Strings(sources)
		return nil, fmt.Errorf("%s (%s): %w", name, strings.Join(sources, ", "), ErrAmbiguous)
	}
}

// Read parses a single artifact file.
func Read(path string) (*Factory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var raw hardhatArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if raw.ContractName == "" {
		return nil, fmt.Errorf("decode artifact %s: missing contractName", path)
	}
	if len(raw.LinkReferences) > 0 {
		return nil, fmt.Errorf("%s: %w", raw.ContractName, ErrUnlinked)
	}

	parsed, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return nil, fmt.Errorf("parse abi of %s: %w", raw.ContractName, err)
	}

	code := strings.TrimSpace(raw.Bytecode)
	if code == "" || code == "0x" {
		return nil, fmt.Errorf("%s: %w", raw.ContractName, ErrNoBytecode)
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode of %s: %w", raw.ContractName, err)
	}

	return &Factory{
		Name:       raw.ContractName,
		SourceName: raw.SourceName,
		Path:       path,
		ABI:        parsed,
		Bytecode:   bytecode,
	}, nil
}

func splitQualified(name string) (source, contract string) {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
