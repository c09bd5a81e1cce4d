// Package tools declares the operations the language model may call
// and dispatches its calls against the commerce services.
package tools

import (
	"encoding/json"

	"github.com/garageconnect/conversational-commerce/internal/llm"
)

// Tool names. The wording of names and descriptions is part of the
// model contract; change with care.
const (
	ToolSearchTyres          = "search_tyres"
	ToolAddToCart            = "add_to_cart"
	ToolViewCart             = "view_cart"
	ToolRemoveFromCart       = "remove_from_cart"
	ToolUpdateCartQuantity   = "update_cart_quantity"
	ToolClearCart            = "clear_cart"
	ToolReplaceProductInCart = "replace_product_in_cart"
	ToolUpdateProgress       = "update_progress"
	ToolGetProductDetails    = "get_product_details"
	ToolGetAvailableBrands   = "get_available_brands"
	ToolGetOrderStatus       = "get_order_status"
	ToolListOrders           = "list_orders"
	ToolCompareProducts      = "compare_products"
	ToolCreateOrder          = "create_order"
)

var definitions = []llm.ToolDefinition{
	{
		Name:        ToolSearchTyres,
		Description: "Search available tyres by dimensions, with optional brand, category and price filters. Results are paginated.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"width": {"type": "integer", "description": "Tyre width in mm, e.g. 205", "minimum": 100, "maximum": 400},
				"height": {"type": "integer", "description": "Aspect ratio, e.g. 55", "minimum": 20, "maximum": 90},
				"diameter": {"type": "integer", "description": "Rim diameter in inches, e.g. 16", "minimum": 10, "maximum": 26},
				"brand": {"type": "string", "description": "Optional brand filter, e.g. Michelin"},
				"category": {"type": "string", "enum": ["budget", "standard", "premium"], "description": "Optional price tier filter"},
				"min_price": {"type": "number", "minimum": 0},
				"max_price": {"type": "number", "minimum": 0},
				"page": {"type": "integer", "minimum": 1, "description": "Results page, 1-based"}
			},
			"required": ["width", "height", "diameter"]
		}`),
	},
	{
		Name:        ToolAddToCart,
		Description: "Add a tyre to the customer's cart. product_id may be a catalog ID or the position number from the last search results.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"product_id": {"type": "string", "description": "Catalog product ID, or a 1-based position in the last results"},
				"quantity": {"type": "integer", "minimum": 1, "maximum": 8, "description": "Number of tyres, usually 2 or 4"}
			},
			"required": ["product_id", "quantity"]
		}`),
	},
	{
		Name:        ToolViewCart,
		Description: "Show the current contents and total of the customer's cart.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name:        ToolRemoveFromCart,
		Description: "Remove a product line from the cart.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"product_id": {"type": "string", "description": "Catalog product ID of the line to remove"}
			},
			"required": ["product_id"]
		}`),
	},
	{
		Name:        ToolUpdateCartQuantity,
		Description: "Change the quantity of a product already in the cart. Quantity 0 removes the line.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"product_id": {"type": "string"},
				"quantity": {"type": "integer", "minimum": 0, "maximum": 8}
			},
			"required": ["product_id", "quantity"]
		}`),
	},
	{
		Name:        ToolClearCart,
		Description: "Empty the customer's cart.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name:        ToolReplaceProductInCart,
		Description: "Swap one cart product for another, keeping the quantity unless a new one is given.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"old_product_id": {"type": "string", "description": "Product currently in the cart"},
				"new_product_id": {"type": "string", "description": "Replacement product ID, or a 1-based position in the last results"},
				"quantity": {"type": "integer", "minimum": 1, "maximum": 8}
			},
			"required": ["old_product_id", "new_product_id"]
		}`),
	},
	{
		Name:        ToolUpdateProgress,
		Description: "Record the customer's progress in the sales funnel. Call after a step is genuinely completed.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"step": {"type": "string", "enum": ["greeting", "search", "results", "selection", "cart", "checkout", "payment", "confirmation"]}
			},
			"required": ["step"]
		}`),
	},
	{
		Name:        ToolGetProductDetails,
		Description: "Show the full details of one tyre: price, stock, description.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"product_id": {"type": "string", "description": "Catalog product ID, or a 1-based position in the last results"}
			},
			"required": ["product_id"]
		}`),
	},
	{
		Name:        ToolGetAvailableBrands,
		Description: "List the brands in stock, optionally for one tyre dimension.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"width": {"type": "integer"},
				"height": {"type": "integer"},
				"diameter": {"type": "integer"}
			}
		}`),
	},
	{
		Name:        ToolGetOrderStatus,
		Description: "Look up one order by its number, e.g. GC-20250601-001.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"order_number": {"type": "string", "description": "Order number of the form GC-YYYYMMDD-NNN"}
			},
			"required": ["order_number"]
		}`),
	},
	{
		Name:        ToolListOrders,
		Description: "List the customer's recent orders, newest first.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "minimum": 1, "maximum": 10}
			}
		}`),
	},
	{
		Name:        ToolCompareProducts,
		Description: "Compare two or more tyres side by side.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"product_ids": {
					"type": "array",
					"items": {"type": "string"},
					"minItems": 2,
					"maxItems": 4
				}
			},
			"required": ["product_ids"]
		}`),
	},
	{
		Name:        ToolCreateOrder,
		Description: "Create the order from the cart and return the payment link. Only call once the customer has given their real first name, last name, email and delivery address. Never invent these values.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"first_name": {"type": "string"},
				"last_name": {"type": "string"},
				"email": {"type": "string"},
				"address": {"type": "string"},
				"city": {"type": "string"},
				"postal_code": {"type": "string"}
			},
			"required": ["first_name", "last_name", "email", "address"]
		}`),
	},
}

// Definitions returns the tool menu advertised to the model.
func Definitions() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, len(definitions))
	copy(out, definitions)
	return out
}
