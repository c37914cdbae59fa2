package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hanko-field/storefront/internal/catalog"
	domain "github.com/hanko-field/storefront/internal/domain"
)

type catalogOptions struct {
	root    *rootOptions
	output  string
	limit   int
	skip    int
	baseURL string
}

func newCatalogCommand(root *rootOptions) *cobra.Command {
	opts := &catalogOptions{root: root}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the upstream product catalog",
	}
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "catalog base URL (defaults to STOREFRONT_CATALOG_BASE_URL)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			page, err := client.ListProducts(cmd.Context(), opts.limit, opts.skip)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), newPageView(page))
		},
	}
	list.Flags().IntVar(&opts.limit, "limit", 20, "page size")
	list.Flags().IntVar(&opts.skip, "skip", 0, "products to skip")

	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search products by free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			page, err := client.SearchProducts(cmd.Context(), strings.Join(args, " "), opts.limit)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), newPageView(page))
		},
	}
	search.Flags().IntVar(&opts.limit, "limit", 20, "maximum results")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Fetch one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("product id must be a positive integer, got %q", args[0])
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			product, err := client.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), newProductView(product))
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			list, err := client.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]categoryView, 0, len(list))
			for _, c := range list {
				views = append(views, categoryView{Name: c.Name, Slug: c.Slug})
			}
			return opts.write(cmd.OutOrStdout(), views)
		},
	}

	cmd.AddCommand(list, search, get, categories)
	return cmd
}

func (o *catalogOptions) client(cmd *cobra.Command) (*catalog.Client, error) {
	baseURL := strings.TrimSpace(o.baseURL)
	cfg, err := o.root.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = cfg.Catalog.BaseURL
	}
	logger, err := o.root.newLogger()
	if err != nil {
		return nil, err
	}
	return catalog.NewClient(baseURL,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithLogger(logger.Named("catalog")),
	), nil
}

func (o *catalogOptions) write(w io.Writer, v any) error {
	switch strings.ToLower(strings.TrimSpace(o.output)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", o.output)
	}
}

type productView struct {
	ID          int      `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Brand       string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category    string   `json:"category" yaml:"category"`
	Price       float64  `json:"price" yaml:"price"`
	PriceINR    string   `json:"price_inr" yaml:"price_inr"`
	Discount    float64  `json:"discount_percentage" yaml:"discount_percentage"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Stock       int      `json:"stock" yaml:"stock"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

type pageView struct {
	Total    int           `json:"total" yaml:"total"`
	Skip     int           `json:"skip" yaml:"skip"`
	Limit    int           `json:"limit" yaml:"limit"`
	Products []productView `json:"products" yaml:"products"`
}

type categoryView struct {
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
}

func newProductView(p domain.Product) productView {
	return productView{
		ID:          p.ID,
		Title:       p.Title,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price,
		PriceINR:    domain.FormatUSDAsINR(p.Price),
		Discount:    p.DiscountPercentage,
		Rating:      p.Rating,
		Stock:       p.Stock,
		Tags:        p.Tags,
		Description: p.Description,
	}
}

func newPageView(page domain.ProductPage) pageView {
	view := pageView{Total: page.Total, Skip: page.Skip, Limit: page.Limit, Products: make([]productView, 0, len(page.Products))}
	for _, p := range page.Products {
		view.Products = append(view.Products, newProductView(p))
	}
	return view
}
