package services

import (
	"context"
	"sync"

	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/utils"
)

// Cart is the per-user shopping cart snapshot.
type Cart struct {
	Items []models.CartItem `json:"items"`
	Total float64           `json:"total"`
}

// CartService keeps one memory-resident cart per user. Product data is
// always resolved against the catalog, never stored client-side.
type CartService interface {
	Get(ctx context.Context, userID string) (Cart, error)
	// Add puts one unit of the product into the cart, incrementing the
	// quantity if it is already there.
	Add(ctx context.Context, userID, productID string) (Cart, error)
	// SetQuantity sets the line quantity; zero or less removes the line.
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (Cart, error)
	Remove(ctx context.Context, userID, productID string) (Cart, error)
	Clear(ctx context.Context, userID string) error
}

type cartService struct {
	mu      sync.Mutex
	carts   map[string][]models.CartItem
	catalog catalog.Repository
}

func NewCartService(repo catalog.Repository) CartService {
	return &cartService{carts: make(map[string][]models.CartItem), catalog: repo}
}

func (s *cartService) Get(_ context.Context, userID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(userID), nil
}

func (s *cartService) Add(_ context.Context, userID, productID string) (Cart, error) {
	const op = "CartService.Add"

	p, ok := s.catalog.Get(productID)
	if !ok {
		return Cart{}, utils.E(utils.CodeNotFound, op, "product not found", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].Product.ID == productID {
			items[i].Quantity++
			return s.snapshot(userID), nil
		}
	}
	s.carts[userID] = append(items, models.CartItem{Product: *p, Quantity: 1})
	return s.snapshot(userID), nil
}

func (s *cartService) SetQuantity(_ context.Context, userID, productID string, quantity int) (Cart, error) {
	const op = "CartService.SetQuantity"

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].Product.ID != productID {
			continue
		}
		if quantity <= 0 {
			s.carts[userID] = append(items[:i], items[i+1:]...)
		} else {
			items[i].Quantity = quantity
		}
		return s.snapshot(userID), nil
	}
	return Cart{}, utils.E(utils.CodeNotFound, op, "product not in cart", nil)
}

func (s *cartService) Remove(_ context.Context, userID, productID string) (Cart, error) {
	const op = "CartService.Remove"

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].Product.ID == productID {
			s.carts[userID] = append(items[:i], items[i+1:]...)
			return s.snapshot(userID), nil
		}
	}
	return Cart{}, utils.E(utils.CodeNotFound, op, "product not in cart", nil)
}

func (s *cartService) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
	return nil
}

// snapshot copies the cart and totals it with any discounts applied.
// Caller must hold s.mu.
func (s *cartService) snapshot(userID string) Cart {
	items := s.carts[userID]
	out := Cart{Items: make([]models.CartItem, len(items))}
	copy(out.Items, items)
	for _, it := range items {
		price := it.Product.Price
		if it.Product.Discount > 0 {
			price = price * (1 - float64(it.Product.Discount)/100)
		}
		out.Total += price * float64(it.Quantity)
	}
	return out
}
