package fulfillment

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"

	"github.com/rakhadenta/digistore-golang/internal/models"
)

// Resolver discovers the download links an order should deliver.
//
// "What was purchased" has been recorded three different ways over the
// shop's history, so the resolver tries each source in a fixed priority
// order and stops at the first one that yields at least one link:
//
//  1. order_items joined to products, by the known order id
//  2. the same join, after resolving the order by its order number
//  3. the legacy orders.notes column (a JSON array of line items)
//  4. the even older orders.product_id single-product column
//
// Products without a download URL are silently skipped, malformed legacy
// data counts as "no data here", and an empty result is a valid outcome
// (operators then fulfill manually). The resolver never fails a request:
// query errors are logged and degrade to an empty source.
type Resolver struct {
	DB *sql.DB
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{DB: db}
}

// legacyNoteItem is the shape old checkouts wrote into orders.notes.
type legacyNoteItem struct {
	ProductID    int64  `json:"productId"`
	ProductTitle string `json:"productTitle"`
}

// ResolveDownloadLinks runs the cascade for an order identified by id
// and/or order number. Either identifier may be missing.
func (r *Resolver) ResolveDownloadLinks(ctx context.Context, orderID *int64, orderNumber string) []models.DownloadLink {
	// 1. --- order_items by the known order id ---
	if orderID != nil {
		if links := r.linksByOrderID(ctx, *orderID); len(links) > 0 {
			return links
		}
	}

	// The remaining sources all need the order row itself.
	order, ok := r.lookupOrder(ctx, orderID, orderNumber)
	if !ok {
		return nil
	}

	// 2. --- order_items again, via the order resolved by number ---
	// (Skipped when it would just repeat step 1 on the same id.)
	if orderID == nil || order.ID != *orderID {
		if links := r.linksByOrderID(ctx, order.ID); len(links) > 0 {
			return links
		}
	}

	// 3. --- legacy notes JSON ---
	if links := r.linksFromLegacyNotes(ctx, order.Notes); len(links) > 0 {
		return links
	}

	// 4. --- legacy single-product column ---
	return r.linkFromLegacyProductColumn(ctx, order.ProductID)
}

// lookupOrder fetches the order row, preferring the order number over the id.
func (r *Resolver) lookupOrder(ctx context.Context, orderID *int64, orderNumber string) (models.Order, bool) {
	var order models.Order

	scanRow := func(row *sql.Row) bool {
		err := row.Scan(&order.ID, &order.OrderNumber, &order.Status, &order.Notes, &order.ProductID)
		if err != nil {
			if err != sql.ErrNoRows {
				log.Printf("fulfillment: failed to load order: %v", err)
			}
			return false
		}
		return true
	}

	query := "SELECT id, order_number, status, notes, product_id FROM orders WHERE "

	if orderNumber != "" {
		if scanRow(r.DB.QueryRowContext(ctx, query+"order_number = ?", orderNumber)) {
			return order, true
		}
	}
	if orderID != nil {
		if scanRow(r.DB.QueryRowContext(ctx, query+"id = ?", *orderID)) {
			return order, true
		}
	}
	return models.Order{}, false
}

// linksByOrderID joins line items to products and collects the download
// URLs, keeping the original item order.
func (r *Resolver) linksByOrderID(ctx context.Context, orderID int64) []models.DownloadLink {
	query := `
		SELECT p.title, p.download_url
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id ASC
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		log.Printf("fulfillment: order_items query failed for order %d: %v", orderID, err)
		return nil
	}
	defer rows.Close()

	var links []models.DownloadLink
	for rows.Next() {
		var title string
		var downloadURL sql.NullString
		if err := rows.Scan(&title, &downloadURL); err != nil {
			log.Printf("fulfillment: failed to scan order item for order %d: %v", orderID, err)
			return nil
		}

		// Products without a download URL (physical goods) are skipped.
		if downloadURL.Valid && downloadURL.String != "" {
			links = append(links, models.DownloadLink{Title: title, URL: downloadURL.String})
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("fulfillment: order_items iteration failed for order %d: %v", orderID, err)
	}

	return links
}

// linksFromLegacyNotes parses the JSON-in-a-text-column line items and looks
// up each product's download URL individually, preserving the array order.
func (r *Resolver) linksFromLegacyNotes(ctx context.Context, notes sql.NullString) []models.DownloadLink {
	if !notes.Valid || notes.String == "" {
		return nil
	}

	var items []legacyNoteItem
	if err := json.Unmarshal([]byte(notes.String), &items); err != nil {
		// Old rows sometimes hold free text here. Not an error, just no data.
		return nil
	}

	var links []models.DownloadLink
	for _, item := range items {
		if link, ok := r.linkByProductID(ctx, item.ProductID, item.ProductTitle); ok {
			links = append(links, link)
		}
	}
	return links
}

// linkFromLegacyProductColumn falls back to orders.product_id as a
// single-item result.
func (r *Resolver) linkFromLegacyProductColumn(ctx context.Context, productID sql.NullInt64) []models.DownloadLink {
	if !productID.Valid {
		return nil
	}
	if link, ok := r.linkByProductID(ctx, productID.Int64, ""); ok {
		return []models.DownloadLink{link}
	}
	return nil
}

// linkByProductID returns the product's download link, or ok=false when the
// product is missing or has no download URL.
func (r *Resolver) linkByProductID(ctx context.Context, productID int64, fallbackTitle string) (models.DownloadLink, bool) {
	var title string
	var downloadURL sql.NullString

	err := r.DB.QueryRowContext(ctx,
		"SELECT title, download_url FROM products WHERE id = ?", productID,
	).Scan(&title, &downloadURL)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("fulfillment: product lookup failed for id %d: %v", productID, err)
		}
		return models.DownloadLink{}, false
	}

	if !downloadURL.Valid || downloadURL.String == "" {
		return models.DownloadLink{}, false
	}

	if title == "" {
		title = fallbackTitle
	}
	return models.DownloadLink{Title: title, URL: downloadURL.String}, true
}
