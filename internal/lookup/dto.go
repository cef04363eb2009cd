package lookup

// Wire types for the benefit registry API.

type tokenRequest struct {
	GrantType string `json:"grant_type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// consultResponse is the 2xx body. A non-empty Error field means the
// registry answered with a structured failure instead of data.
type consultResponse struct {
	Error    string `json:"error"`
	Nome     string `json:"nome"`
	Vinculos []Bond `json:"vinculos"`
}

// Bond is one employment/benefit entry for a document. Monetary and
// date fields arrive as strings in Brazilian formats; the consumer
// derives typed values from them.
type Bond struct {
	Matricula       string `json:"matricula"`
	Empregador      string `json:"empregador"`
	Situacao        string `json:"situacao"`
	Salario         string `json:"salario"`
	DataAdmissao    string `json:"dataAdmissao"`
	DataAfastamento string `json:"dataAfastamento"`
	CodigoBeneficio string `json:"codigoBeneficio"`
	Mensagem        string `json:"mensagem"`
}
