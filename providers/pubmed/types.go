package pubmed

// ESearchResponse is the JSON reply of the esearch endpoint.
type ESearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// EFetchResponse maps the parts of the efetch XML reply we consume.
type EFetchResponse struct {
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

type PubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Text []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			Journal struct {
				Title string `xml:"Title"`
			} `xml:"Journal"`
			AuthorList struct {
				Authors []Author `xml:"Author"`
			} `xml:"AuthorList"`
			ArticleDate struct {
				Year  string `xml:"Year"`
				Month string `xml:"Month"`
				Day   string `xml:"Day"`
			} `xml:"ArticleDate"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

type Author struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}
