package models

// Texture describes a surface finish variant.
type Texture struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Textures maps a texture code to its finish description.
var Textures = map[string]Texture{
	"SMT": {Code: "SMT", Name: "Smooth Matt", Description: "Silky smooth matte finish"},
	"FT":  {Code: "FT", Name: "Fine Texture", Description: "Subtle textured surface"},
	"CG":  {Code: "CG", Name: "Coarse Grain", Description: "Bold wood-like texture"},
	"LX":  {Code: "LX", Name: "Luxury", Description: "Premium high-gloss finish"},
	"FB":  {Code: "FB", Name: "Fiber", Description: "Natural fiber texture"},
	"SF":  {Code: "SF", Name: "Soft Feel", Description: "Velvety soft-touch surface"},
	"SYN": {Code: "SYN", Name: "Synchronized", Description: "Texture matches the design"},
	"HG":  {Code: "HG", Name: "High Gloss", Description: "Mirror-like shine"},
	"SG":  {Code: "SG", Name: "Super Gloss", Description: "Ultra-reflective finish"},
}

// LookupTexture returns the texture for code. Unknown codes come back with
// the code as their name so callers can still render something.
func LookupTexture(code string) Texture {
	if t, ok := Textures[code]; ok {
		return t
	}
	return Texture{Code: code, Name: code}
}
