package uniform

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/kestrel3d/kestrel/common"
)

// SchemaMismatchError reports uniform declarations that cannot be reconciled:
// stages disagree on a member's shape, neither stage's declaration contains
// the other, or a source contains uniform syntax that fails to parse.
type SchemaMismatchError struct {
	// Member is the offending member name, when one can be identified.
	Member string

	// Reason describes why the declarations are irreconcilable.
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("uniform schema mismatch for %q: %s", e.Member, e.Reason)
	}
	return fmt.Sprintf("uniform schema mismatch: %s", e.Reason)
}

// Member is one named entry of a uniform schema. Numeric members carry a slot
// offset assigned by the layout pass; texture members occupy no slots and
// have Offset -1.
type Member struct {
	Name   string
	Kind   Kind
	Offset int
	Slots  int
}

// Schema is the resolved uniform layout for one shader source pair: the
// participating members in declaration order plus the packed buffer length.
type Schema struct {
	Members    []Member
	TotalSlots int
}

// Member returns the schema entry for a name.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - Member: the entry, zero-valued when absent
//   - bool: true when the name participates in this schema
func (s *Schema) Member(name string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// wgslUniformVarRegex matches `var<uniform> name : StructName` declarations.
var wgslUniformVarRegex = regexp.MustCompile(`var\s*<\s*uniform\s*>\s*(\w+)\s*:\s*(\w+)`)

// wgslStructRegex matches struct declarations and captures their body.
var wgslStructRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

// wgslFieldRegex matches `name : type` struct fields.
var wgslFieldRegex = regexp.MustCompile(`(\w+)\s*:\s*([\w<>,\s]+?)\s*[,\n}]`)

// wgslTextureVarRegex matches sampled texture bindings.
var wgslTextureVarRegex = regexp.MustCompile(`var\s+(\w+)\s*:\s*(texture_\w+(?:<\w+>)?)`)

// glslBlockRegex matches `uniform Name { ... }` interface blocks.
var glslBlockRegex = regexp.MustCompile(`uniform\s+(\w+)\s*\{([^}]*)\}`)

// glslBlockFieldRegex matches `type name;` fields inside an interface block.
var glslBlockFieldRegex = regexp.MustCompile(`(\w+)\s+(\w+)\s*(?:\[[^\]]*\])?\s*;`)

// glslPlainRegex matches loose `uniform type name;` declarations.
var glslPlainRegex = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(?:highp\s+|mediump\s+|lowp\s+)?(\w+)\s+(\w+)\s*(?:\[[^\]]*\])?\s*;`)

// wgslKindMap maps WGSL type names to uniform kinds.
var wgslKindMap = map[string]Kind{
	"f32":         KindScalar,
	"i32":         KindScalar,
	"u32":         KindScalar,
	"vec2f":       KindVec2,
	"vec2<f32>":   KindVec2,
	"vec3f":       KindVec3,
	"vec3<f32>":   KindVec3,
	"vec4f":       KindVec4,
	"vec4<f32>":   KindVec4,
	"mat3x3f":     KindMat3,
	"mat3x3<f32>": KindMat3,
	"mat4x4f":     KindMat4,
	"mat4x4<f32>": KindMat4,
}

// glslKindMap maps GLSL type names to uniform kinds.
var glslKindMap = map[string]Kind{
	"float":       KindScalar,
	"int":         KindScalar,
	"uint":        KindScalar,
	"bool":        KindScalar,
	"vec2":        KindVec2,
	"vec3":        KindVec3,
	"vec4":        KindVec4,
	"mat3":        KindMat3,
	"mat4":        KindMat4,
	"sampler2D":   KindTexture,
	"samplerCube": KindTexture,
}

// Parse derives the uniform schema for a vertex/fragment source pair: each
// stage's declarations are scanned, the member lists are unioned, and the
// longer declaration wins when the stages disagree. Asymmetric declarations
// are accepted only when one side is a superset of the other.
//
// Parameters:
//   - vertexSrc: the vertex-stage source (WGSL or GLSL)
//   - fragmentSrc: the fragment-stage source
//
// Returns:
//   - *Schema: the resolved schema with assigned offsets
//   - error: a *SchemaMismatchError when the declarations cannot be reconciled
func Parse(vertexSrc, fragmentSrc string) (*Schema, error) {
	vm, err := parseStage(vertexSrc)
	if err != nil {
		return nil, err
	}
	fm, err := parseStage(fragmentSrc)
	if err != nil {
		return nil, err
	}

	members, err := reconcile(vm, fm)
	if err != nil {
		return nil, err
	}

	s := &Schema{Members: members}
	s.assignOffsets()
	return s, nil
}

// parseStage scans one stage's source for uniform declarations. A stage with
// no uniform syntax yields an empty member list; a stage whose uniform syntax
// yields no parseable members is an error, never a silent empty set.
func parseStage(src string) ([]Member, error) {
	hasWGSL := strings.Contains(src, "var<uniform>") || wgslUniformVarRegex.MatchString(src)
	if hasWGSL {
		return parseWGSL(src)
	}
	if glslBlockRegex.MatchString(src) || glslPlainRegex.MatchString(src) {
		return parseGLSL(src)
	}
	if regexp.MustCompile(`\buniform\b`).MatchString(src) {
		return nil, &SchemaMismatchError{Reason: "source declares uniforms but none could be parsed"}
	}
	if wgslTextureVarRegex.MatchString(src) {
		return textureMembersWGSL(src), nil
	}
	return nil, nil
}

func parseWGSL(src string) ([]Member, error) {
	structs := make(map[string]string)
	for _, m := range wgslStructRegex.FindAllStringSubmatch(src, -1) {
		structs[m[1]] = m[2]
	}

	var members []Member
	for _, m := range wgslUniformVarRegex.FindAllStringSubmatch(src, -1) {
		body, ok := structs[m[2]]
		if !ok {
			return nil, &SchemaMismatchError{Member: m[1], Reason: fmt.Sprintf("uniform struct %q not declared", m[2])}
		}
		// Terminate the body so the field regex can anchor the last entry.
		for _, f := range wgslFieldRegex.FindAllStringSubmatch(body+"\n", -1) {
			name, typeName := f[1], strings.TrimSpace(f[2])
			kind, ok := wgslKindMap[typeName]
			if !ok {
				common.Logger().Warn("unsupported uniform shape skipped", "member", name, "type", typeName)
				continue
			}
			members = append(members, Member{Name: name, Kind: kind})
		}
	}
	members = append(members, textureMembersWGSL(src)...)

	if len(members) == 0 {
		return nil, &SchemaMismatchError{Reason: "source declares uniforms but none could be parsed"}
	}
	return members, nil
}

func textureMembersWGSL(src string) []Member {
	var members []Member
	for _, m := range wgslTextureVarRegex.FindAllStringSubmatch(src, -1) {
		members = append(members, Member{Name: m[1], Kind: KindTexture, Offset: -1})
	}
	return members
}

func parseGLSL(src string) ([]Member, error) {
	var members []Member

	blocks := glslBlockRegex.FindAllStringSubmatch(src, -1)
	for _, b := range blocks {
		for _, f := range glslBlockFieldRegex.FindAllStringSubmatch(b[2], -1) {
			typeName, name := f[1], f[2]
			kind, ok := glslKindMap[typeName]
			if !ok {
				common.Logger().Warn("unsupported uniform shape skipped", "member", name, "type", typeName)
				continue
			}
			members = append(members, Member{Name: name, Kind: kind})
		}
	}

	// Strip blocks so loose-declaration scanning cannot re-match their fields.
	stripped := glslBlockRegex.ReplaceAllString(src, "")
	for _, m := range glslPlainRegex.FindAllStringSubmatch(stripped, -1) {
		typeName, name := m[1], m[2]
		kind, ok := glslKindMap[typeName]
		if !ok {
			common.Logger().Warn("unsupported uniform shape skipped", "member", name, "type", typeName)
			continue
		}
		offset := 0
		if kind == KindTexture {
			offset = -1
		}
		members = append(members, Member{Name: name, Kind: kind, Offset: offset})
	}

	if len(members) == 0 {
		return nil, &SchemaMismatchError{Reason: "source declares uniforms but none could be parsed"}
	}
	return members, nil
}

// reconcile unions two stage member lists. Texture members bind per stage and
// may appear in either stage alone, so they are unioned directly; numeric
// members follow the superset rule, where the longer list wins as long as it
// contains every numeric member of the shorter one with a matching kind.
func reconcile(vertex, fragment []Member) ([]Member, error) {
	vNumeric, vTextures := splitTextureMembers(vertex)
	fNumeric, fTextures := splitTextureMembers(fragment)

	longer, shorter := vNumeric, fNumeric
	if len(fNumeric) > len(vNumeric) {
		longer, shorter = fNumeric, vNumeric
	}

	byName := make(map[string]Kind, len(longer))
	for _, m := range longer {
		byName[m.Name] = m.Kind
	}
	for _, m := range shorter {
		kind, ok := byName[m.Name]
		if !ok {
			return nil, &SchemaMismatchError{Member: m.Name, Reason: "declared in one stage but missing from the longer declaration"}
		}
		if kind != m.Kind {
			return nil, &SchemaMismatchError{Member: m.Name, Reason: fmt.Sprintf("declared as %s in one stage and %s in the other", m.Kind, kind)}
		}
	}

	members := longer
	seen := make(map[string]bool, len(vTextures)+len(fTextures))
	for _, m := range append(vTextures, fTextures...) {
		if seen[m.Name] {
			continue
		}
		if kind, clash := byName[m.Name]; clash {
			return nil, &SchemaMismatchError{Member: m.Name, Reason: fmt.Sprintf("declared as a texture in one stage and %s in the other", kind)}
		}
		seen[m.Name] = true
		members = append(members, m)
	}
	return members, nil
}

func splitTextureMembers(members []Member) (numeric, textures []Member) {
	for _, m := range members {
		if m.Kind == KindTexture {
			textures = append(textures, m)
		} else {
			numeric = append(numeric, m)
		}
	}
	return numeric, textures
}

// assignOffsets lays out numeric members under the fixed alignment rules:
// scalars take one slot, two-component values align to 2, wider values align
// to 4, and the total rounds up to a multiple of 4.
func (s *Schema) assignOffsets() {
	offset := 0
	for i := range s.Members {
		m := &s.Members[i]
		if m.Kind == KindTexture {
			m.Offset = -1
			continue
		}
		align := m.Kind.slotAlign()
		offset = (offset + align - 1) / align * align
		m.Offset = offset
		m.Slots = m.Kind.slotCount()
		offset += m.Slots
	}
	s.TotalSlots = (offset + 3) / 4 * 4
}

// SchemaCache memoizes schema derivation per (vertex source, fragment source)
// pair so the regexp scan runs once, not per frame.
type SchemaCache struct {
	mu      *sync.Mutex
	entries map[sourcePair]*Schema
}

type sourcePair struct {
	vertex   string
	fragment string
}

// NewSchemaCache creates an empty schema cache.
//
// Returns:
//   - *SchemaCache: the empty cache
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{
		mu:      &sync.Mutex{},
		entries: make(map[sourcePair]*Schema),
	}
}

// Lookup returns the schema for a source pair, deriving and caching it on
// first encounter. Parse failures are not cached; a corrected source pair is
// a different key anyway.
//
// Parameters:
//   - vertexSrc: the vertex-stage source
//   - fragmentSrc: the fragment-stage source
//
// Returns:
//   - *Schema: the resolved schema
//   - error: a *SchemaMismatchError when derivation fails
func (c *SchemaCache) Lookup(vertexSrc, fragmentSrc string) (*Schema, error) {
	key := sourcePair{vertex: vertexSrc, fragment: fragmentSrc}
	c.mu.Lock()
	if s, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := Parse(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = s
	c.mu.Unlock()
	common.Logger().Debug("uniform schema derived", "members", len(s.Members), "slots", s.TotalSlots)
	return s, nil
}
