package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryCatalog is an in-process Store. A single mutex guards every product,
// which makes TryDeduct atomic with respect to concurrent checkouts.
type MemoryCatalog struct {
	mu       sync.Mutex
	products map[string]Product
	order    []string
}

func NewMemoryCatalog(initial ...Product) (*MemoryCatalog, error) {
	c := &MemoryCatalog{products: make(map[string]Product, len(initial))}
	for _, p := range initial {
		if _, err := c.Create(context.Background(), p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewSeededMemoryCatalog returns the demo catalog a fresh terminal starts with.
func NewSeededMemoryCatalog() *MemoryCatalog {
	c, err := NewMemoryCatalog(DemoProducts()...)
	if err != nil {
		panic(err)
	}
	return c
}

func DemoProducts() []Product {
	return []Product{
		{Name: "Product 1", Barcode: "1234567890123", Price: decimal.RequireFromString("10.50"), Stock: 100},
		{Name: "Product 2", Barcode: "1234567890124", Price: decimal.RequireFromString("25.00"), Stock: 50},
		{Name: "Product 3", Barcode: "1234567890125", Price: decimal.RequireFromString("5.75"), Stock: 200},
		{Name: "Product 4", Barcode: "1234567890126", Price: decimal.RequireFromString("15.25"), Stock: 75},
		{Name: "Product 5", Barcode: "1234567890127", Price: decimal.RequireFromString("8.90"), Stock: 150},
	}
}

func (c *MemoryCatalog) FindByName(ctx context.Context, name string) (Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[name]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, ErrNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.nameForBarcode(barcode); ok {
		return c.products[name], nil
	}
	return Product{}, ErrNotFound
}

func (c *MemoryCatalog) CurrentStock(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[name]
	if !ok {
		return 0, ErrNotFound
	}
	return p.Stock, nil
}

func (c *MemoryCatalog) TryDeduct(ctx context.Context, name string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[name]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	c.products[name] = p
	return true, nil
}

func (c *MemoryCatalog) Restore(ctx context.Context, name string, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[name]
	if !ok {
		return ErrNotFound
	}
	p.Stock += quantity
	c.products[name] = p
	return nil
}

func (c *MemoryCatalog) List(ctx context.Context) ([]Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Product, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.products[name])
	}
	return out, nil
}

func (c *MemoryCatalog) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	all, _ := c.List(ctx)
	if query == "" {
		return all, nil
	}

	out := make([]Product, 0)
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *MemoryCatalog) Create(ctx context.Context, p Product) (Product, error) {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[p.Name]; ok {
		return Product{}, ErrDuplicateName
	}
	if _, ok := c.nameForBarcode(p.Barcode); ok {
		return Product{}, ErrDuplicateBarcode
	}
	c.products[p.Name] = p
	c.order = append(c.order, p.Name)
	return p, nil
}

func (c *MemoryCatalog) Update(ctx context.Context, name string, p Product) (Product, error) {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[name]; !ok {
		return Product{}, ErrNotFound
	}
	if p.Name != name {
		if _, ok := c.products[p.Name]; ok {
			return Product{}, ErrDuplicateName
		}
	}
	if owner, ok := c.nameForBarcode(p.Barcode); ok && owner != name {
		return Product{}, ErrDuplicateBarcode
	}

	delete(c.products, name)
	c.products[p.Name] = p
	c.order[slices.Index(c.order, name)] = p.Name
	return p, nil
}

func (c *MemoryCatalog) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[name]; !ok {
		return ErrNotFound
	}
	delete(c.products, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	return nil
}

func (c *MemoryCatalog) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	all, _ := c.List(ctx)
	out := make([]Product, 0)
	for _, p := range all {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Product) int {
		if a.Stock != b.Stock {
			return cmp.Compare(a.Stock, b.Stock)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (c *MemoryCatalog) TotalStockValue(ctx context.Context) (decimal.Decimal, error) {
	all, _ := c.List(ctx)
	total := decimal.Zero
	for _, p := range all {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return total, nil
}

// nameForBarcode must be called with c.mu held.
func (c *MemoryCatalog) nameForBarcode(barcode string) (string, bool) {
	if barcode == "" {
		return "", false
	}
	for name, p := range c.products {
		if p.Barcode == barcode {
			return name, true
		}
	}
	return "", false
}
