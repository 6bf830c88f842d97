// Package docs provides generated OpenAPI documentation.
//
// formshelf API
//
//	@title			formshelf API
//	@version		1.0
//	@description	Form-table digitization API: recognize a form picture, transform its table into JSON and remap field names.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/formshelf
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/formshelf/serve.go -o ./swagger --parseDependency --parseInternal
