package tools

// In-memory datasets backing the lane tools. A deployment would load these
// from the tenant's back office; the shapes are what the tools contract on.

// Product is one catalog entry.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	PriceCents  int
	Currency    string
	Stock       int
	Tags        []string
}

// Location is one store with coordinates for proximity search.
type Location struct {
	ID      string
	Name    string
	Address string
	City    string
	Lat     float64
	Lng     float64
	Phone   string
}

// FaqEntry is one searchable FAQ item.
type FaqEntry struct {
	Category string
	Question string
	Answer   string
	Keywords []string
}

// Order is one placed order for status lookup.
type Order struct {
	ID         string
	WaID       string
	Status     string // confirmed, preparing, shipped, delivered
	Carrier    string
	City       string
	EtaDays    int
	TotalCents int
	Currency   string
}

// SupportCase is an open support case.
type SupportCase struct {
	ID         string
	WaID       string
	Subject    string
	Status     string // open, in_review, resolved
	Escalation int
}

var defaultCatalog = []Product{
	{ID: "SKU-1001", Name: "Camiseta Clasica", Description: "Camiseta de algodon 100%, corte unisex.", Category: "ropa", PriceCents: 49900, Currency: "COP", Stock: 42, Tags: []string{"camiseta", "algodon", "basica"}},
	{ID: "SKU-1002", Name: "Camiseta Estampada", Description: "Camiseta con estampado local, edicion limitada.", Category: "ropa", PriceCents: 69900, Currency: "COP", Stock: 15, Tags: []string{"camiseta", "estampado"}},
	{ID: "SKU-2001", Name: "Mochila Urbana", Description: "Mochila impermeable de 20L con bolsillo para portatil.", Category: "accesorios", PriceCents: 189900, Currency: "COP", Stock: 8, Tags: []string{"mochila", "impermeable"}},
	{ID: "SKU-2002", Name: "Gorra Bordada", Description: "Gorra ajustable con bordado frontal.", Category: "accesorios", PriceCents: 39900, Currency: "COP", Stock: 0, Tags: []string{"gorra"}},
	{ID: "SKU-3001", Name: "Termo Acero 750ml", Description: "Termo de acero inoxidable, mantiene frio 24h.", Category: "hogar", PriceCents: 89900, Currency: "COP", Stock: 23, Tags: []string{"termo", "acero"}},
}

var defaultLocations = []Location{
	{ID: "bog-chapinero", Name: "Tienda Chapinero", Address: "Cra 13 # 54-20", City: "Bogota", Lat: 4.6486, Lng: -74.0628, Phone: "+57 601 555 0101"},
	{ID: "bog-usaquen", Name: "Tienda Usaquen", Address: "Cll 119 # 6-12", City: "Bogota", Lat: 4.6946, Lng: -74.0309, Phone: "+57 601 555 0102"},
	{ID: "med-poblado", Name: "Tienda El Poblado", Address: "Cra 43A # 6S-15", City: "Medellin", Lat: 6.2088, Lng: -75.5704, Phone: "+57 604 555 0201"},
}

// weekday -> "open-close" in 24h local time; empty means closed.
var defaultHours = map[string]string{
	"monday":    "09:00-19:00",
	"tuesday":   "09:00-19:00",
	"wednesday": "09:00-19:00",
	"thursday":  "09:00-19:00",
	"friday":    "09:00-20:00",
	"saturday":  "10:00-18:00",
	"sunday":    "",
}

var defaultFaq = []FaqEntry{
	{Category: "envios", Question: "Cuanto tarda el envio?", Answer: "Los envios nacionales tardan de 2 a 5 dias habiles segun la ciudad.", Keywords: []string{"envio", "demora", "tarda", "shipping"}},
	{Category: "envios", Question: "Cuanto cuesta el envio?", Answer: "Envio gratis por compras sobre $150.000 COP; de lo contrario $12.000 COP.", Keywords: []string{"costo", "envio", "gratis"}},
	{Category: "pagos", Question: "Que medios de pago aceptan?", Answer: "Aceptamos PSE, tarjetas de credito/debito, Nequi y pago contraentrega en Bogota.", Keywords: []string{"pago", "pse", "nequi", "tarjeta", "contraentrega"}},
	{Category: "devoluciones", Question: "Puedo cambiar un producto?", Answer: "Tienes 30 dias para cambios con la etiqueta puesta y factura de compra.", Keywords: []string{"cambio", "devolucion", "talla"}},
}

var defaultOrders = []Order{
	{ID: "ORD-1042", WaID: "573001112233", Status: "shipped", Carrier: "Servientrega", City: "Bogota", EtaDays: 2, TotalCents: 189900, Currency: "COP"},
	{ID: "ORD-1043", WaID: "573004445566", Status: "preparing", Carrier: "", City: "Medellin", EtaDays: 4, TotalCents: 49900, Currency: "COP"},
}

var defaultCases = []SupportCase{
	{ID: "CASE-7F2A11B0", WaID: "573001112233", Subject: "Producto llego con la costura abierta", Status: "in_review", Escalation: 1},
	{ID: "CASE-9C4D22E1", WaID: "573007778899", Subject: "Reembolso no reflejado", Status: "open", Escalation: 0},
}

const refundPolicyText = "Politica de devoluciones: aceptamos devoluciones dentro de los 30 dias " +
	"siguientes a la entrega. El producto debe estar sin uso y con etiquetas. El reembolso se " +
	"procesa al mismo medio de pago en 5 a 10 dias habiles. Productos en promocion solo tienen " +
	"cambio por talla o color."
