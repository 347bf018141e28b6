package domain

import "time"

// Claves de traits de personalidad que un post puede recibir.
const (
	TraitExtroversion      = "extroversion"
	TraitOpenness          = "openness"
	TraitConscientiousness = "conscientiousness"
	TraitOptimism          = "optimism"
	TraitIndependence      = "independence"
)

// TraitKeys lista los cinco traits en el orden de presentacion del perfil.
var TraitKeys = []string{
	TraitExtroversion,
	TraitOpenness,
	TraitConscientiousness,
	TraitOptimism,
	TraitIndependence,
}

// IsValidTrait indica si la clave pertenece al conjunto fijo de traits.
func IsValidTrait(trait string) bool {
	for _, k := range TraitKeys {
		if k == trait {
			return true
		}
	}
	return false
}

type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"display_name,omitempty"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	OtpCodeHash     string     `json:"-"`
	OtpExpiresAt    *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Post es una entrada de texto de un usuario. Inmutable despues de crearse.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating es la opinion de un rater sobre un post en un trait.
// A lo sumo una fila por (post, rater, trait); re-enviar sobreescribe.
type Rating struct {
	PostID    string    `json:"post_id"`
	RaterID   string    `json:"rater_id"`
	Trait     string    `json:"trait"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TraitStats resume las ratings recibidas por un usuario en un trait.
// Score, Average y los counts se derivan del mismo conjunto de filas.
type TraitStats struct {
	Trait         string  `json:"trait"`
	Score         float64 `json:"score"`
	Average       float64 `json:"average"`
	RatingCount   int     `json:"ratings_count"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
}
