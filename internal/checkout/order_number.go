package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NewOrderNumber produit un numéro lisible du type PRF-9F3A1C2B-M1X2Y3Z4 :
// un jeton aléatoire suivi de l'horodatage en base 36. L'unicité reste
// garantie par la base (CreateOrder renvoie ErrDuplicate).
func NewOrderNumber(now time.Time) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// rand.Read ne retourne pas d'erreur sur les plateformes supportées
		panic(err)
	}
	return "PRF-" + strings.ToUpper(hex.EncodeToString(b)) + "-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}
