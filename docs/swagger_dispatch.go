package docs

// @title           Delivery Dispatch Service API
// @version         1.0
// @description     Dispatch service batches ready orders, picks drivers, optimizes routes and offers trips to drivers over websocket. Includes operational endpoints for manual runs and offer inspection.

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3010
// @BasePath  /
