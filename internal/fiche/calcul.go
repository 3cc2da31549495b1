package fiche

import (
	"errors"
	"fmt"

	"gsb-backend/internal/models"
	"gsb-backend/internal/taux"

	"github.com/shopspring/decimal"
)

// ErrAucunFrais - aucune quantité strictement positive dans la demande.
var ErrAucunFrais = errors.New("au moins un type de frais doit être renseigné")

type Quantites struct {
	Distance       decimal.Decimal
	NbRepas        int
	NbHebergements int
}

type Ligne struct {
	Type     string
	Quantite decimal.Decimal
	Montant  decimal.Decimal
}

// Calculer est une fonction pure: quantités × taux -> lignes de détail et total.
// Une quantité nulle ou absente ne produit ni ligne ni montant. Un taux absent
// pour une catégorie demandée est une erreur de configuration, jamais un taux zéro.
func Calculer(q Quantites, bareme map[string]decimal.Decimal) ([]Ligne, decimal.Decimal, error) {
	type demande struct {
		code     string
		quantite decimal.Decimal
	}

	demandes := []demande{
		{models.TauxKilometre, q.Distance},
		{models.TauxRepas, decimal.NewFromInt(int64(q.NbRepas))},
		{models.TauxHebergement, decimal.NewFromInt(int64(q.NbHebergements))},
	}

	lignes := make([]Ligne, 0, len(demandes))
	total := decimal.Zero

	for _, d := range demandes {
		if !d.quantite.IsPositive() {
			continue
		}
		t, ok := bareme[d.code]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", taux.ErrTauxInconnu, d.code)
		}
		montant := d.quantite.Mul(t).Round(2)
		lignes = append(lignes, Ligne{Type: d.code, Quantite: d.quantite, Montant: montant})
		total = total.Add(montant)
	}

	if len(lignes) == 0 {
		return nil, decimal.Zero, ErrAucunFrais
	}

	return lignes, total, nil
}
