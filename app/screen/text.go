package screen

import "github.com/conteo/inventory-admin/app/form"

// Feature is the banner shown above the product table.
type Feature struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}

var productsFeature = Feature{
	Title:       "Store Your Products",
	Subtitle:    "Organize Your Way",
	Description: "With Conteo, anything is possible. Manage your products efficiently and simply.",
}

const addProductLabel = "Add Product"

var deletePrompt = form.Prompt{
	Title:   "Are you sure?",
	Text:    "You won't be able to revert this!",
	Confirm: "Yes, delete it!",
	Cancel:  "No, cancel!",
}

// Notice is a non-blocking message shown after an action completes.
type Notice struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

var deletedNotice = Notice{
	Title: "Deleted!",
	Text:  "Your product has been deleted.",
}
