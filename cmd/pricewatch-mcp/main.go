package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/pricewatch/apiclient"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/report"
)

func main() {
	client := apiclient.New(apiclient.BaseURLFromEnv(os.Getenv), 2*time.Minute)

	s := server.NewMCPServer(
		"pricewatch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_price",
		mcp.WithDescription("Look up the current listed price of one product page on a supported Egyptian retailer (2b, B.TECH, Raya, Amazon.eg, noon, ...). Returns the price, 'out of stock', or 'unavailable'."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The competitor product page URL"),
		),
		mcp.WithString("competitor",
			mcp.Description("Competitor id such as 'btech.com'; derived from the URL host when omitted"),
		),
	)
	s.AddTool(extractTool, handleExtractPrice(client))

	compareTool := mcp.NewTool("compare_prices",
		mcp.WithDescription("Price a list of products across competitors and summarize min/avg competitor price, where our selling price sits, and whether our cost is competitive. Long lists are processed in several resumable rounds."),
		mcp.WithString("products",
			mcp.Required(),
			mcp.Description(`JSON array of products: [{"name":"...","code":"...","cost":"100","selling_price":"140","competitor_urls":{"2b.com.eg":"https://..."}}]. Use "NA" for competitors that do not carry the product.`),
		),
	)
	s.AddTool(compareTool, handleComparePrices(client))

	competitorsTool := mcp.NewTool("list_competitors",
		mcp.WithDescription("List the competitor ids the price service can read."),
	)
	s.AddTool(competitorsTool, handleListCompetitors(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func handleExtractPrice(client *apiclient.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		competitor := request.GetString("competitor", "")

		res, err := client.Extract(ctx, url, competitor)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !res.Supported {
			return mcp.NewToolResultText(fmt.Sprintf("Competitor %s is not supported.", res.Competitor)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Competitor: %s\nURL: %s\nResult: %s",
			res.Competitor, res.URL, describe(res.Result))), nil
	}
}

func handleComparePrices(client *apiclient.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("products")
		if err != nil {
			return mcp.NewToolResultError("products is required"), nil
		}
		var products []models.Product
		if err := json.Unmarshal([]byte(raw), &products); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("products must be a JSON array: %v", err)), nil
		}
		if len(products) == 0 {
			return mcp.NewToolResultError("products is empty"), nil
		}

		reports, err := client.RunBatch(ctx, products, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(summarize(reports)), nil
	}
}

func handleListCompetitors(client *apiclient.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := client.Competitors(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = string(id)
		}
		return mcp.NewToolResultText(strings.Join(names, "\n")), nil
	}
}

// summarize renders one block per product.
func summarize(reports []models.ProductReport) string {
	var b strings.Builder
	for i, r := range reports {
		row := report.Build(r)
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s) cost %s, our price %s\n", r.Name, r.Code, r.Cost, r.SellingPrice)

		ids := make([]string, 0, len(r.Prices))
		for id := range r.Prices {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "  %s: %s\n", id, describe(r.Prices[models.CompetitorID(id)]))
		}

		if !row.Stats.Empty() {
			fmt.Fprintf(&b, "  min %s, avg %s over %d competitors\n",
				row.Stats.Min.StringFixed(2), row.Stats.Avg.StringFixed(2), row.Stats.Count)
		}
		fmt.Fprintf(&b, "  position: %s, feasibility: %s\n", row.Position, row.Feasibility)
	}
	return b.String()
}

func describe(r models.PriceResult) string {
	switch r.Status() {
	case models.StatusPrice:
		a, _ := r.Amount()
		return a.StringFixed(2) + " EGP"
	case models.StatusOutOfStock:
		return "out of stock"
	default:
		return "unavailable"
	}
}
