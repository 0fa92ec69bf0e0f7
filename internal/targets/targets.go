// targets contains the optyshop schema targets, in the order they were
// authored. Names are the ones already recorded in production ledgers and
// must never change.
package targets

import (
	"github.com/optyshop/schemarecon"
)

const (
	AddBannerColumns  = "add_banner_columns"
	AddBrandColumns   = "add_brand_columns"
	CreateFlashOffers = "create_flash_offers_tables"
)

// BannerColumns lets a banner be scoped to a page type and a (sub)category.
var BannerColumns = schemarecon.Target{
	Name: AddBannerColumns,
	Operations: []schemarecon.Operation{
		schemarecon.AddColumn("banners", schemarecon.Column{
			Name: "page_type", Type: "VARCHAR(50)", NotNull: true, DefaultValue: "home",
		}),
		schemarecon.AddColumn("banners", schemarecon.Column{
			Name: "category_id", Type: "INTEGER",
		}),
		schemarecon.AddColumn("banners", schemarecon.Column{
			Name: "sub_category_id", Type: "INTEGER",
		}),
		schemarecon.AddIndex("banners", schemarecon.Index{
			Name: "idx_banners_page_type", Columns: []string{"page_type"},
		}),
		schemarecon.AddForeignKey("banners", schemarecon.ForeignKey{
			Name:      "fk_banners_category",
			Column:    "category_id",
			RefTable:  "categories",
			RefColumn: "id",
			OnDelete:  "SET NULL",
		}),
	},
}

// BrandColumns adds storefront metadata to brands.
var BrandColumns = schemarecon.Target{
	Name: AddBrandColumns,
	Operations: []schemarecon.Operation{
		schemarecon.AddColumn("brands", schemarecon.Column{
			Name: "slug", Type: "VARCHAR(255)",
		}),
		schemarecon.AddColumn("brands", schemarecon.Column{
			Name: "logo_url", Type: "VARCHAR(500)",
		}),
		schemarecon.AddColumn("brands", schemarecon.Column{
			Name: "is_active", Type: "BOOLEAN", NotNull: true, Default: "TRUE",
		}),
		schemarecon.AddColumn("brands", schemarecon.Column{
			Name: "sort_order", Type: "INTEGER", NotNull: true, Default: "0",
		}),
		schemarecon.AddIndex("brands", schemarecon.Index{
			Name: "idx_brands_slug", Columns: []string{"slug"}, Unique: true,
		}),
	},
}

// FlashOffers creates the time-boxed discount tables and links them to
// products.
var FlashOffers = schemarecon.Target{
	Name: CreateFlashOffers,
	Operations: []schemarecon.Operation{
		schemarecon.CreateTable("flash_offers", schemarecon.Table{
			Columns: []schemarecon.Column{
				{Name: "id", Type: "INTEGER", NotNull: true},
				{Name: "title", Type: "VARCHAR(255)", NotNull: true},
				{Name: "description", Type: "TEXT"},
				{Name: "discount_percentage", Type: "DECIMAL(5,2)", NotNull: true, Default: "0"},
				{Name: "starts_at", Type: "TIMESTAMP NULL"},
				{Name: "ends_at", Type: "TIMESTAMP NULL"},
				{Name: "is_active", Type: "BOOLEAN", NotNull: true, Default: "TRUE"},
				{Name: "created_at", Type: "TIMESTAMP", NotNull: true, Default: "CURRENT_TIMESTAMP"},
			},
			PrimaryKey: []string{"id"},
		}),
		schemarecon.CreateTable("flash_offer_products", schemarecon.Table{
			Columns: []schemarecon.Column{
				{Name: "flash_offer_id", Type: "INTEGER", NotNull: true},
				{Name: "product_id", Type: "INTEGER", NotNull: true},
			},
			PrimaryKey: []string{"flash_offer_id", "product_id"},
			ForeignKeys: []schemarecon.ForeignKey{
				{
					Name:      "fk_flash_offer_products_offer",
					Column:    "flash_offer_id",
					RefTable:  "flash_offers",
					RefColumn: "id",
					OnDelete:  "CASCADE",
				},
				{
					Name:      "fk_flash_offer_products_product",
					Column:    "product_id",
					RefTable:  "products",
					RefColumn: "id",
					OnDelete:  "CASCADE",
				},
			},
		}),
		schemarecon.AddIndex("flash_offers", schemarecon.Index{
			Name: "idx_flash_offers_active_window", Columns: []string{"is_active", "starts_at", "ends_at"},
		}),
	},
}

// All returns every target in the order it must be reconciled.
func All() []schemarecon.Target {
	return []schemarecon.Target{
		BannerColumns,
		BrandColumns,
		FlashOffers,
	}
}

// ByName returns the target with the given name.
func ByName(name string) (schemarecon.Target, bool) {
	for _, target := range All() {
		if target.Name == name {
			return target, true
		}
	}
	return schemarecon.Target{}, false
}

// Names returns the names of every target, in order.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for _, target := range all {
		names = append(names, target.Name)
	}
	return names
}
