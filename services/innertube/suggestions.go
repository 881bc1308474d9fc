package innertube

import "context"

const suggestionsMask = "contents.searchSuggestionsSectionRenderer.contents.searchSuggestionRenderer.navigationEndpoint.searchEndpoint.query"

// SearchSuggestions returns the query completions offered for input.
func (c *Client) SearchSuggestions(ctx context.Context, input string) ([]string, error) {
	body := SearchSuggestionsBody{Context: c.web, Input: input}

	var resp SearchSuggestionsResponse
	if err := c.post(ctx, EndpointSearchSuggestions, c.web, body, suggestionsMask, nil, &resp); err != nil {
		return nil, err
	}

	suggestions := []string{}
	if len(resp.Contents) == 0 || resp.Contents[0].SearchSuggestionsSectionRenderer == nil {
		return suggestions, nil
	}
	for _, content := range resp.Contents[0].SearchSuggestionsSectionRenderer.Contents {
		r := content.SearchSuggestionRenderer
		if r == nil || r.NavigationEndpoint == nil || r.NavigationEndpoint.SearchEndpoint == nil {
			continue
		}
		suggestions = append(suggestions, r.NavigationEndpoint.SearchEndpoint.Query)
	}
	return suggestions, nil
}
