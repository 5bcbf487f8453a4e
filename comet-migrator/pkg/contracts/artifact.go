// Package contracts loads compiled contract artifacts and deploys them through the
// transaction manager.
package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/afero"
)

var (
	ErrLinkingUnsupported = errors.New("cannot deploy bytecode with unlinked libraries")
	ErrArtifactMissing    = errors.New("artifact not found")
)

type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// bytecodeJSON accepts Hardhat's plain hex string and Foundry's {"object": "..."}.
type bytecodeJSON string

func (b *bytecodeJSON) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = bytecodeJSON(s)
		return nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bytecode is neither a string nor an object: %w", err)
	}
	*b = bytecodeJSON(obj.Object)
	return nil
}

type artifactJSON struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     bytecodeJSON    `json:"bytecode"`
}

func ParseArtifact(name string, data []byte) (*Artifact, error) {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", name, err)
	}
	if raw.ContractName != "" {
		name = raw.ContractName
	}
	code := string(raw.Bytecode)
	// placeholders look like __$<hash>$__ (foundry) or __Library______ (hardhat)
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("%w: %s", ErrLinkingUnsupported, name)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI of %s: %w", name, err)
	}
	return &Artifact{Name: name, ABI: parsed, Bytecode: common.FromHex(code)}, nil
}

// DeployData is the creation code followed by the encoded constructor arguments.
func (a *Artifact) DeployData(args ...any) ([]byte, error) {
	if len(a.Bytecode) == 0 {
		return nil, fmt.Errorf("%s has no creation code (abstract contract or interface?)", a.Name)
	}
	encoded, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s constructor: %w", a.Name, err)
	}
	return append(append([]byte{}, a.Bytecode...), encoded...), nil
}

// Artifacts reads artifacts from a build output directory, either Foundry's
// <Name>.sol/<Name>.json layout or a flat <Name>.json.
type Artifacts struct {
	fs  afero.Fs
	dir string
}

func OpenArtifacts(fs afero.Fs, dir string) *Artifacts {
	return &Artifacts{fs: fs, dir: dir}
}

func (a *Artifacts) Get(name string) (*Artifact, error) {
	candidates := []string{
		path.Join(a.dir, name+".sol", name+".json"),
		path.Join(a.dir, name+".json"),
	}
	for _, p := range candidates {
		data, err := afero.ReadFile(a.fs, p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		return ParseArtifact(name, data)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrArtifactMissing, name, a.dir)
}
