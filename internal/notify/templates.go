package notify

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/sells-group/brickwatch/internal/model"
)

const (
	marketBestBanner = "🏆 NOUVEAU MEILLEUR PRIX SUR LE MARCHÉ !"
	greatBanner      = "C'est une TRÈS bonne affaire 🔥🔥"
	goodBanner       = "C'est une bonne affaire ✅✅"
)

func qualityBanner(q model.Quality) string {
	switch q {
	case model.QualityGreat:
		return greatBanner
	case model.QualityGood:
		return goodBanner
	default:
		return ""
	}
}

func eur(d decimal.Decimal) string {
	return d.StringFixed(2) + "€"
}

var funcs = map[string]any{
	"eur":     eur,
	"quality": qualityBanner,
	"best":    func() string { return marketBestBanner },
}

type dealsView struct {
	Deals     []model.Deal
	Dashboard string
}

type promosView struct {
	Promotions []model.Promotion
	Dashboard  string
}

var dealsText = texttemplate.Must(texttemplate.New("deals.txt").Funcs(funcs).Parse(strings.TrimLeft(`
Bonjour,

Voici les baisses de prix détectées aujourd'hui :

{{range .Deals}}--------------------
Set: {{.DisplayName}}
Site: {{.Merchant}}
Ancien Meilleur Prix: {{eur .PreviousPrice}}
NOUVEAU MEILLEUR PRIX: {{eur .NewPrice}}
{{if .MarketBest}}{{best}}
{{end}}{{with quality .Quality}}   >> {{.}}
{{end}}Lien: {{.SourceURL}}
{{end}}{{if .Dashboard}}
Pour une analyse détaillée, consultez votre tableau de bord : {{.Dashboard}}
{{end}}`, "\n")))

var dealsHTML = htmltemplate.Must(htmltemplate.New("deals.html").Funcs(funcs).Parse(`<html><body style="font-family: sans-serif;">
<h2>Bonjour,</h2><p>Voici les baisses de prix détectées aujourd'hui :</p>
{{range .Deals}}<hr>
<div style="padding: 10px;">
  {{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.DisplayName}}" style="max-width: 160px; float: right;">{{end}}
  <h3 style="margin-top:0;">{{.DisplayName}}</h3>
  {{if .MarketBest}}<p style="font-weight: bold; color: #d9534f;">{{best}}</p>{{end}}
  <p style="line-height: 1.5;">
    <b>Site:</b> {{.Merchant}}<br>
    <b>Ancien Meilleur Prix:</b> {{eur .PreviousPrice}}<br>
    <b style="color:green; font-size: 1.1em;">NOUVEAU PRIX: {{eur .NewPrice}}</b>
    {{with quality .Quality}}<br>&gt;&gt; {{.}}{{end}}
  </p>
  <p><a href="{{.SourceURL}}" style="background-color: #007bff; color: white; padding: 8px 12px; text-decoration: none; border-radius: 5px;">Voir l'offre</a></p>
</div>
{{end}}{{if .Dashboard}}<hr><p>Consultez votre <a href="{{.Dashboard}}">tableau de bord complet</a>.</p>{{end}}
</body></html>`))

var promosText = texttemplate.Must(texttemplate.New("promos.txt").Parse(strings.TrimLeft(`
Bonjour,

De nouvelles promotions LEGO ont été détectées sur Avenue de la Brique.

{{range .Promotions}}--------------------
MARCHAND: {{.Merchant}}
OFFRE: {{.Title}}
DÉTAILS: {{if .Details}}{{.Details}}{{else}}N/A{{end}}
LIEN: {{.URL}}
{{end}}
Consultez la page des bons plans pour plus d'informations.
`, "\n")))

var promosHTML = htmltemplate.Must(htmltemplate.New("promos.html").Parse(`<html><body style="font-family: sans-serif;">
<h2>Bonjour,</h2>
<p>De nouvelles promotions LEGO ont été détectées sur Avenue de la Brique :</p>
{{range .Promotions}}<hr>
<div style="padding: 10px; border-left: 4px solid #f0ad4e; margin-bottom: 10px;">
  <h3 style="margin-top:0; color:#333;">{{.Merchant}} : {{.Title}}</h3>
  <p style="line-height: 1.5; color: #555;">{{.Details}}</p>
  <p><a href="{{.URL}}" style="background-color: #007bff; color: white; padding: 8px 12px; text-decoration: none; border-radius: 5px;">Voir le détail de l'offre</a></p>
</div>
{{end}}{{if .Dashboard}}<hr><p>Consultez votre <a href="{{.Dashboard}}">tableau de bord</a> pour le suivi des prix de vos sets.</p>{{end}}
</body></html>`))
