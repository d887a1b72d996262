package session

// State represents a position in the per-user conversation state machine.
type State string

const (
	// StateNew is the initial state assigned on first contact.
	StateNew State = "new"
	// StateMainMenu is the quiescent resting state most flows return to.
	StateMainMenu     State = "main_menu"
	StateSettingsMenu State = "settings_menu"

	// Shop-owner registration flow.
	StateRegistrationName    State = "registration_name"
	StateRegistrationPhone   State = "registration_phone"
	StateRegistrationEmail   State = "registration_email"
	StateRegistrationCity    State = "registration_city"
	StateRegistrationConfirm State = "registration_confirm"

	// Shop setup flow.
	StateShopSetupName        State = "shop_setup_name"
	StateShopSetupDescription State = "shop_setup_description"
	StateShopSetupCity        State = "shop_setup_city"
	StateShopSetupAddress     State = "shop_setup_address"
	StateShopSetupHours       State = "shop_setup_hours"
	StateShopSetupConfirm     State = "shop_setup_confirm"

	// Shop management.
	StateShopMenu State = "shop_menu"
	StateShopEdit State = "shop_edit"

	// Catalog management.
	StateProductAddName  State = "product_add_name"
	StateProductAddPrice State = "product_add_price"
	StateProductEdit     State = "product_edit"
	StateCategoryAdd     State = "category_add"
	StateOrderView       State = "order_view"

	// Settings sub-menus.
	StateNotificationSettings State = "notification_settings"
	StateDeliverySettings     State = "delivery_settings"
)
