package kiosk

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/reelscout/backend/internal/domain"
)

// catalogPage mirrors {"Products": {"Movie": [...]}}. Products are kept raw so
// their field order survives decoding.
type catalogPage struct {
	Products struct {
		Movie []json.RawMessage `json:"Movie"`
	} `json:"Products"`
}

func decodeCatalogPage(body []byte) ([]domain.CatalogItem, error) {
	var page catalogPage
	if err := json.Unmarshal(bytes.TrimSpace(body), &page); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	items := make([]domain.CatalogItem, 0, len(page.Products.Movie))
	for i, raw := range page.Products.Movie {
		fields, err := domain.DecodeOrderedObject(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", domain.ErrDecode, i, err)
		}
		items = append(items, domain.CatalogItem{Fields: fields})
	}
	return items, nil
}

// storesDoc takes every child of the root element as a store.
type storesDoc struct {
	Stores []storeElement `xml:",any"`
}

// storeElement reads the distance element from the stores v2 namespace.
type storeElement struct {
	StoreID  string `xml:"storeId,attr"`
	Distance string `xml:"http://api.redbox.com/Stores/v2 DistanceFromSearchLocation"`
}

func decodeStores(body []byte) ([]domain.Kiosk, error) {
	var doc storesDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	kiosks := make([]domain.Kiosk, 0, len(doc.Stores))
	for _, s := range doc.Stores {
		kiosks = append(kiosks, domain.Kiosk{StoreID: s.StoreID, DistanceText: s.Distance})
	}
	return kiosks, nil
}

// inventoryDoc holds the root's children; the first one wraps the inventory lines.
type inventoryDoc struct {
	Groups []inventoryGroup `xml:",any"`
}

type inventoryGroup struct {
	Lines []inventoryLine `xml:",any"`
}

type inventoryLine struct {
	ProductID string `xml:"productId,attr"`
	Status    string `xml:"inventoryStatus,attr"`
}

func decodeInventory(body []byte) ([]domain.InventoryItem, error) {
	var doc inventoryDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if len(doc.Groups) == 0 {
		return nil, nil
	}

	lines := doc.Groups[0].Lines
	items := make([]domain.InventoryItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.InventoryItem{ProductID: line.ProductID, Status: line.Status})
	}
	return items, nil
}
