package ingest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gpuscout/internal/model"
)

const ebayPage = `<html><body><ul class="srp-results">
<li class="s-item">
  <a class="s-item__link" href="https://www.ebay.co.uk/itm/0"><h3 class="s-item__title">Shop on eBay</h3></a>
  <span class="s-item__price">£20.00</span>
</li>
<li class="s-item s-item__pl-on-bottom">
  <a class="s-item__link" href="https://www.ebay.co.uk/itm/1">
    <h3 class="s-item__title"><span>New listing</span>MSI GeForce RTX 4070   Ventus 12GB</h3>
  </a>
  <span class="s-item__price">£499.99</span>
  <span class="SECONDARY_INFO">Pre-owned</span>
  <span class="s-item__location">from United Kingdom</span>
</li>
<li class="s-item">
  <h3 class="s-item__title">Sapphire Pulse RX 7800 XT</h3>
  <a class="s-item__link" href="/itm/2">view</a>
  <span class="s-item__price">£420.00 to £450.00</span>
</li>
</ul></body></html>`

const gumtreePage = `<html><body>
<article class="listing-maxi">
  <a class="listing-link" href="/p/graphics-cards/rtx-3080/1234">
    <h2 class="listing-title">EVGA RTX 3080 FTW3 10GB</h2>
  </a>
  <strong class="amount">£350</strong>
  <div class="listing-location">Leeds</div>
</article>
<article class="listing-maxi">
  <p>no title here</p>
</article>
</body></html>`

func TestParseHTML_Ebay(t *testing.T) {
	sel, ok := model.DefaultConfig().Marketplace("ebay")
	require.True(t, ok)
	base, _ := url.Parse("https://www.ebay.co.uk/sch/i.html?_nkw=gpu")

	listings, err := ParseHTML(strings.NewReader(ebayPage), sel.Selectors, "ebay", base)
	require.NoError(t, err)
	require.Len(t, listings, 2, "promotional tile is skipped")

	first := listings[0]
	assert.Equal(t, "New listing MSI GeForce RTX 4070 Ventus 12GB", first.Title)
	assert.Equal(t, "£499.99", first.PriceText)
	assert.Equal(t, "Pre-owned", first.ConditionText)
	assert.Equal(t, "from United Kingdom", first.Location)
	assert.Equal(t, "https://www.ebay.co.uk/itm/1", first.URL)
	assert.Equal(t, "ebay", first.Marketplace)

	second := listings[1]
	assert.Equal(t, "Sapphire Pulse RX 7800 XT", second.Title)
	assert.Equal(t, "https://www.ebay.co.uk/itm/2", second.URL, "relative link resolves against the page")
	assert.Empty(t, second.ConditionText)
}

func TestParseHTML_GumtreeAlternatives(t *testing.T) {
	sel, ok := model.DefaultConfig().Marketplace("gumtree")
	require.True(t, ok)
	base, _ := url.Parse("https://www.gumtree.com/search?q=gpu")

	listings, err := ParseHTML(strings.NewReader(gumtreePage), sel.Selectors, "gumtree", base)
	require.NoError(t, err)
	require.Len(t, listings, 1, "item without a title is skipped")

	l := listings[0]
	assert.Equal(t, "EVGA RTX 3080 FTW3 10GB", l.Title)
	assert.Equal(t, "£350", l.PriceText, "second price alternative is used")
	assert.Equal(t, "Leeds", l.Location)
	assert.Equal(t, "https://www.gumtree.com/p/graphics-cards/rtx-3080/1234", l.URL)
}

func TestParseHTML_NoBase(t *testing.T) {
	sel := model.Selectors{Item: "card", Title: "name", Link: "go"}
	page := `<div class="card"><span class="name">RTX 4060</span><a class="go" href="/x">x</a></div>
<div class="card"><span class="name">RTX 4060 Ti</span><a class="go" href="https://shop.example/y">y</a></div>`

	listings, err := ParseHTML(strings.NewReader(page), sel, "shop", nil)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Empty(t, listings[0].URL, "relative link without a base is dropped")
	assert.Equal(t, "https://shop.example/y", listings[1].URL)
}

func TestParseHTML_MissingSelectors(t *testing.T) {
	_, err := ParseHTML(strings.NewReader("<html></html>"), model.Selectors{Item: "x"}, "shop", nil)
	assert.Error(t, err)
}

func TestParseHTML_Empty(t *testing.T) {
	sel := model.Selectors{Item: "card", Title: "name"}
	listings, err := ParseHTML(strings.NewReader("<html><body></body></html>"), sel, "shop", nil)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestNodeText_SkipsScripts(t *testing.T) {
	sel := model.Selectors{Item: "card", Title: "name"}
	page := `<div class="card"><p class="name">RTX <script>var x = 1;</script>3090</p></div>`

	listings, err := ParseHTML(strings.NewReader(page), sel, "shop", nil)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "RTX 3090", listings[0].Title)
}
